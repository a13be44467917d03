package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const approvalPrefix = "approval:"

// BadgerStore persists approval records in BadgerDB, one msgpack-encoded
// record per monotonically increasing sequence key, so iteration returns
// insertion order.
type BadgerStore struct {
	db *badger.DB

	mu   sync.Mutex
	next uint64
}

// BadgerOptions configures the store.
type BadgerOptions struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string
	// InMemory runs badger without disk persistence. Useful for tests.
	InMemory bool
}

// OpenBadger opens or creates the store and resumes the sequence counter
// from existing records.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("ledger: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(quietLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open badger: %w", err)
	}
	store := &BadgerStore{db: db}
	if err := store.resumeSequence(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BadgerStore) resumeSequence() error {
	prefix := []byte(approvalPrefix)
	return s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var seq uint64
			key := string(it.Item().Key())
			if _, err := fmt.Sscanf(key, approvalPrefix+"%016d", &seq); err != nil {
				continue
			}
			if seq >= s.next {
				s.next = seq + 1
			}
		}
		return nil
	})
}

// Save appends one record. The sequence counter is guarded by a mutex, so
// concurrent writers never collide on a key.
func (s *BadgerStore) Save(_ context.Context, record ApprovalRecord) error {
	value, err := msgpack.Marshal(record)
	if err != nil {
		return fmt.Errorf("ledger: encode record %s: %w", record.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := []byte(fmt.Sprintf(approvalPrefix+"%016d", s.next))
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("ledger: save record %s: %w", record.ID, err)
	}
	s.next++
	return nil
}

// Records returns all approvals in insertion order.
func (s *BadgerStore) Records(_ context.Context) ([]ApprovalRecord, error) {
	prefix := []byte(approvalPrefix)
	var records []ApprovalRecord
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record ApprovalRecord
			if err := msgpack.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: list records: %w", err)
	}
	return records, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietLogger keeps badger's info and debug chatter out of CLI output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}

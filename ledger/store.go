package ledger

import (
	"context"
	"sync"
)

// Store persists approval records in insertion order.
type Store interface {
	Save(ctx context.Context, record ApprovalRecord) error
	Records(ctx context.Context) ([]ApprovalRecord, error)
	Close() error
}

// MemoryStore keeps records in memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records []ApprovalRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, record ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryStore) Records(_ context.Context) ([]ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ApprovalRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

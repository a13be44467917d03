package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	want := make([]ApprovalRecord, 3)
	for i := range want {
		want[i] = ApprovalRecord{
			ID:         fmt.Sprintf("rec-%d", i),
			Proposal:   proposal(fmt.Sprintf("span-%d", i), []string{"OCTAVE_DOWN_LOCAL"}, 1.2, 0.85),
			ApprovedAt: time.Date(2024, 6, 1, 12, i, 0, 0, time.UTC),
		}
		if err := store.Save(ctx, want[i]); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := store.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("records = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("record %d = %q, want insertion order preserved", i, got[i].ID)
		}
		if got[i].Proposal.SpanID != want[i].Proposal.SpanID {
			t.Fatalf("record %d proposal = %+v", i, got[i].Proposal)
		}
		if !got[i].ApprovedAt.Equal(want[i].ApprovedAt) {
			t.Fatalf("record %d approvedAt = %v, want %v", i, got[i].ApprovedAt, want[i].ApprovedAt)
		}
	}
}

func TestBadgerStoreResumesSequence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Save(ctx, ApprovalRecord{ID: fmt.Sprintf("first-%d", i)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Save(ctx, ApprovalRecord{ID: "second-0"}); err != nil {
		t.Fatalf("Save after reopen: %v", err)
	}

	records, err := reopened.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	wantIDs := []string{"first-0", "first-1", "second-0"}
	if len(records) != len(wantIDs) {
		t.Fatalf("records = %d, want %d", len(records), len(wantIDs))
	}
	for i, id := range wantIDs {
		if records[i].ID != id {
			t.Fatalf("record %d = %q, want %q", i, records[i].ID, id)
		}
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Fatalf("on-disk mode without a dir must error")
	}
}

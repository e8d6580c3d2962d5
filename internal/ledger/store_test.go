package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatscribe/internal/job"
	"chatscribe/internal/ledger"
	"chatscribe/internal/testsupport"
)

func snapshot(id, archive string, state job.State) job.Snapshot {
	return job.Snapshot{
		ID:          id,
		ArchiveName: archive,
		State:       state,
		CreatedAt:   time.Now(),
	}
}

func TestRecordSnapshotUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	snap := snapshot("chat-aaaa1111", "chat.zip", job.StatePending)
	if err := store.RecordSnapshot(ctx, "batch-1", snap); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	snap.State = job.StateCompleted
	snap.Progress = 1
	snap.Result = "/out/chat.txt"
	if err := store.RecordSnapshot(ctx, "batch-1", snap); err != nil {
		t.Fatalf("RecordSnapshot update: %v", err)
	}

	record, err := store.Get(ctx, "chat-aaaa1111")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.State != job.StateCompleted {
		t.Fatalf("expected completed state, got %s", record.State)
	}
	if record.ResultPath != "/out/chat.txt" {
		t.Fatalf("unexpected result path %q", record.ResultPath)
	}
	if record.BatchID != "batch-1" {
		t.Fatalf("unexpected batch id %q", record.BatchID)
	}
}

func TestGetMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	_, err := store.Get(context.Background(), "chat-nope")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBatchReturnsAllJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"chat-a", "chat-b", "chat-c"} {
		if err := store.RecordSnapshot(ctx, "batch-1", snapshot(id, id+".zip", job.StateFailed)); err != nil {
			t.Fatalf("RecordSnapshot: %v", err)
		}
	}
	if err := store.RecordSnapshot(ctx, "batch-2", snapshot("chat-d", "d.zip", job.StatePending)); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	records, err := store.ListBatch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("ListBatch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestListAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.RecordSnapshot(ctx, "batch-1", snapshot("chat-a", "a.zip", job.StateCompleted)); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	records, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	records, err = store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List after clear: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d records", len(records))
	}
}

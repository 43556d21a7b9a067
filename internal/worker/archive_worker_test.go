package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tracker/internal/core"
	"tracker/internal/events"
	"tracker/internal/log"
	"tracker/internal/storage"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func newTestWorker(t *testing.T, objects ObjectWriter) (*ArchiveWorker, *storage.SQLiteRepository) {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"), logger)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewArchiveWorker(repo, objects, 10, logger), repo
}

func TestHandleArchiveMessage(t *testing.T) {
	objects := newFakeObjects()
	w, repo := newTestWorker(t, objects)
	ctx := context.Background()

	id, err := repo.Append(ctx, core.Transaction{
		UserID: "u1",
		Title:  "Groceries",
		Amount: core.Money{Cents: 4250},
		Type:   core.Expense,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := w.HandleArchiveMessage(ctx, events.NewArchiveMessage(id, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	key := "archive/u1/" + id + ".json"
	body, ok := objects.objects[key]
	if !ok {
		t.Fatalf("snapshot not written, have %v", keysOf(objects.objects))
	}
	var snap map[string]any
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if snap["title"] != "Groceries" || snap["userId"] != "u1" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}

	pending, err := repo.PendingArchive(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("record still pending after archive: %+v", pending)
	}
}

func TestHandleArchiveMessageUnknownID(t *testing.T) {
	w, _ := newTestWorker(t, newFakeObjects())
	if err := w.HandleArchiveMessage(context.Background(), events.NewArchiveMessage("9999", 1)); err == nil {
		t.Fatal("expected error for unknown transaction")
	}
}

func TestSweepArchivesAllPending(t *testing.T) {
	objects := newFakeObjects()
	w, repo := newTestWorker(t, objects)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := repo.Append(ctx, core.Transaction{UserID: "u1", Title: "t", Amount: core.Money{Cents: 100}, Type: core.Expense}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}

	pending, err := repo.PendingArchive(ctx, 100)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected everything archived, %d still pending", len(pending))
	}
	if len(objects.objects) != 7 {
		t.Fatalf("expected 7 snapshots, got %d", len(objects.objects))
	}
}

func TestSweepKeepsFailedRecordsPending(t *testing.T) {
	objects := newFakeObjects()
	objects.err = errors.New("bucket unreachable")
	w, repo := newTestWorker(t, objects)
	ctx := context.Background()

	if _, err := repo.Append(ctx, core.Transaction{UserID: "u1", Title: "t", Amount: core.Money{Cents: 100}, Type: core.Expense}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("sweep must not abort on individual failures: %v", err)
	}

	pending, err := repo.PendingArchive(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed record must stay pending, got %d", len(pending))
	}

	// The record archives once the store recovers.
	objects.err = nil
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("sweep after recovery: %v", err)
	}
	pending, err = repo.PendingArchive(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected archive after recovery, %d pending", len(pending))
	}
}

func keysOf(m map[string][]byte) string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	return strings.Join(keys, ", ")
}

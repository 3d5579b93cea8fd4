package hotstore

import (
	"testing"

	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
)

func TestAppendCheckedGapDetection(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	entryV1 := WalEntry{Transaction: op.Transaction{ID: "t1"}, Version: 1, Timestamp: 1}
	if err := store.AppendChecked("doc-1", entryV1, 1); err != nil {
		t.Fatalf("append v1: %v", err)
	}

	entryV3 := WalEntry{Transaction: op.Transaction{ID: "t3"}, Version: 3, Timestamp: 3}
	err = store.AppendChecked("doc-1", entryV3, 3)
	if err == nil {
		t.Fatal("expected a version gap error")
	}
	gapErr, ok := err.(*docerrors.VersionGapError)
	if !ok {
		t.Fatalf("expected *VersionGapError, got %T", err)
	}
	if gapErr.Expected != 3 || gapErr.ActualPrevious != 1 {
		t.Fatalf("unexpected gap error: %+v", gapErr)
	}

	entries, err := store.GetSince("doc-1", 0)
	if err != nil {
		t.Fatalf("get_since: %v", err)
	}
	if len(entries) != 1 || entries[0].Version != 1 {
		t.Fatalf("expected only v1 to be stored, got %+v", entries)
	}
}

func TestGetSinceOrdering(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for v := uint64(1); v <= 5; v++ {
		entry := WalEntry{Transaction: op.Transaction{ID: string(rune('a' + v))}, Version: v, Timestamp: int64(v)}
		if err := store.AppendChecked("doc-1", entry, v); err != nil {
			t.Fatalf("append v%d: %v", v, err)
		}
	}
	entries, err := store.GetSince("doc-1", 2)
	if err != nil {
		t.Fatalf("get_since: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after version 2, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Version != uint64(3+i) {
			t.Fatalf("entries out of order: %+v", entries)
		}
	}
}

func TestTruncateUpto(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for v := uint64(1); v <= 5; v++ {
		entry := WalEntry{Transaction: op.Transaction{ID: string(rune('a' + v))}, Version: v, Timestamp: int64(v)}
		if err := store.AppendChecked("doc-1", entry, v); err != nil {
			t.Fatalf("append v%d: %v", v, err)
		}
	}
	if err := store.TruncateUpto("doc-1", 5); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	entries, err := store.GetSince("doc-1", 0)
	if err != nil {
		t.Fatalf("get_since: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty WAL after truncating through the last version, got %d", len(entries))
	}
}

func TestTruncateNonexistentDocSucceeds(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.TruncateUpto("never-existed", 10); err != nil {
		t.Fatalf("truncate on absent doc must succeed silently: %v", err)
	}
}

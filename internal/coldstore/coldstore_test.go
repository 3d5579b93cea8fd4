package coldstore

import (
	"testing"

	"github.com/collabdoc/engine/internal/value"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	doc := StoredDoc{
		State:         value.Map(map[string]value.Value{"title": value.String("x")}),
		Version:       7,
		SchemaVersion: 1,
		SavedAt:       1000,
	}
	if err := store.Save("doc-1", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load("doc-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a stored doc")
	}
	if loaded.Version != 7 || loaded.SchemaVersion != 1 {
		t.Fatalf("unexpected loaded doc: %+v", loaded)
	}
	title, _ := loaded.State.Field("title")
	s, _ := title.AsString()
	if s != "x" {
		t.Fatalf("title = %q", s)
	}
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	doc, err := store.Load("missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc != nil {
		t.Fatal("expected nil for an absent document")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Delete("never-existed"); err != nil {
		t.Fatalf("delete absent doc should succeed: %v", err)
	}
}

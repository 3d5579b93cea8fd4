package engine

import (
	"testing"
	"time"

	"github.com/collabdoc/engine/internal/coldstore"
	"github.com/collabdoc/engine/internal/config"
	"github.com/collabdoc/engine/internal/hotstore"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

type memCold struct{ docs map[string]coldstore.StoredDoc }

func newMemCold() *memCold { return &memCold{docs: map[string]coldstore.StoredDoc{}} }

func (m *memCold) Load(docID string) (*coldstore.StoredDoc, error) {
	d, ok := m.docs[docID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}
func (m *memCold) Save(docID string, doc coldstore.StoredDoc) error {
	m.docs[docID] = doc
	return nil
}
func (m *memCold) Delete(docID string) error {
	delete(m.docs, docID)
	return nil
}

type memHot struct{ entries map[string][]hotstore.WalEntry }

func newMemHot() *memHot { return &memHot{entries: map[string][]hotstore.WalEntry{}} }

func (m *memHot) GetSince(docID string, sinceVersion uint64) ([]hotstore.WalEntry, error) {
	var out []hotstore.WalEntry
	for _, e := range m.entries[docID] {
		if e.Version > sinceVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memHot) AppendChecked(docID string, entry hotstore.WalEntry, expectedVersion uint64) error {
	m.entries[docID] = append(m.entries[docID], entry)
	return nil
}

func (m *memHot) TruncateUpto(docID string, upToVersion uint64) error {
	var kept []hotstore.WalEntry
	for _, e := range m.entries[docID] {
		if e.Version > upToVersion {
			kept = append(kept, e)
		}
	}
	m.entries[docID] = kept
	return nil
}

func testEngineCfg() config.EngineConfig {
	sch := schema.NewRecord(map[string]schema.Field{
		"title": {Name: "title", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
	})
	return config.EngineConfig{
		MaxIdleTime: time.Minute,
		Types: map[string]config.DocumentTypeConfig{
			"note": {Schema: sch, Initial: config.ConstantInitial(value.Map(nil))},
		},
	}
}

func clockSeq() func() int64 {
	n := int64(0)
	return func() int64 { n++; return n }
}

func idSeq() func() string {
	n := 0
	return func() string { n++; return "tx" + string(rune('0'+n)) }
}

func TestGetOrRestoreIsIdempotent(t *testing.T) {
	e := New(testEngineCfg(), newMemCold(), newMemHot(), 1, idSeq(), clockSeq(), nil)
	a, err := e.GetOrRestore("note", "doc1")
	if err != nil {
		t.Fatalf("get_or_restore: %v", err)
	}
	b, err := e.GetOrRestore("note", "doc1")
	if err != nil {
		t.Fatalf("get_or_restore: %v", err)
	}
	if a != b {
		t.Fatal("expected the same instance to be returned for repeated get_or_restore calls")
	}
}

func TestSubmitRejectsUnknownDocType(t *testing.T) {
	e := New(testEngineCfg(), newMemCold(), newMemHot(), 1, idSeq(), clockSeq(), nil)
	_, err := e.Submit("ghost-type", "doc1", op.Transaction{ID: "t1", Ops: []op.Op{
		op.New(op.KindScalarSet, path.FromTokens("title"), value.String("x")),
	}})
	if err == nil {
		t.Fatal("expected an error for an unconfigured document type")
	}
}

func TestSubmitCommitsThroughEngine(t *testing.T) {
	e := New(testEngineCfg(), newMemCold(), newMemHot(), 1, idSeq(), clockSeq(), nil)
	out, err := e.Submit("note", "doc1", op.Transaction{ID: "t1", Ops: []op.Op{
		op.New(op.KindScalarSet, path.FromTokens("title"), value.String("hello")),
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.OK || out.Version != 1 {
		t.Fatalf("expected commit at version 1, got %+v", out)
	}
}

func TestEvictIdleSnapshotsAndDrops(t *testing.T) {
	cold := newMemCold()
	e := New(testEngineCfg(), cold, newMemHot(), 1, idSeq(), clockSeq(), nil)
	e.cfg.MaxIdleTime = time.Millisecond

	inst, err := e.GetOrRestore("note", "doc1")
	if err != nil {
		t.Fatalf("get_or_restore: %v", err)
	}
	inst.Submit(op.Transaction{ID: "t1", Ops: []op.Op{
		op.New(op.KindScalarSet, path.FromTokens("title"), value.String("v")),
	}})

	// Force now far enough ahead of last activity that the idle threshold
	// (in milliseconds) is exceeded regardless of the clock's step size.
	e.clock = func() int64 { return 1_000_000 }
	e.evictIdle()

	e.mu.Lock()
	_, stillPresent := e.instances[docKey{docType: "note", docID: "doc1"}]
	e.mu.Unlock()
	if stillPresent {
		t.Fatal("expected the idle instance to be evicted")
	}
	if cold.docs["doc1"].Version != 1 {
		t.Fatalf("expected a snapshot at version 1 before eviction, got %+v", cold.docs["doc1"])
	}
}

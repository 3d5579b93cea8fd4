package serverdoc

import (
	"testing"

	"github.com/collabdoc/engine/internal/document"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

func newTestDoc() *document.Document {
	s := schema.NewRecord(map[string]schema.Field{
		"title": {Name: "title", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
	})
	return document.New(s, document.Options{})
}

func TestValidateAndApplyHappyPath(t *testing.T) {
	var broadcasts []uint64
	sd := New(newTestDoc(), 0, 10, func(tx op.Transaction, version uint64) {
		broadcasts = append(broadcasts, version)
	})

	tx := op.Transaction{ID: "tx1", Ops: []op.Op{op.New(op.KindScalarSet, path.FromTokens("title"), value.String("hello"))}}
	v := sd.Validate(tx)
	if !v.Valid || v.NextVersion != 1 {
		t.Fatalf("expected valid next_version=1, got %+v", v)
	}
	if err := sd.Apply(tx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if sd.CurrentVersion() != 1 {
		t.Fatalf("version = %d", sd.CurrentVersion())
	}
	if len(broadcasts) != 1 || broadcasts[0] != 1 {
		t.Fatalf("expected one broadcast at version 1, got %v", broadcasts)
	}
}

func TestDuplicateTransactionRejected(t *testing.T) {
	sd := New(newTestDoc(), 0, 10, nil)
	tx := op.Transaction{ID: "tx1", Ops: []op.Op{op.New(op.KindScalarSet, path.FromTokens("title"), value.String("hello"))}}
	sd.Validate(tx)
	sd.Apply(tx)

	v := sd.Validate(tx)
	if v.Valid || v.Reason != "Transaction has already been processed" {
		t.Fatalf("expected duplicate rejection, got %+v", v)
	}
}

func TestEmptyTransactionRejected(t *testing.T) {
	sd := New(newTestDoc(), 0, 10, nil)
	v := sd.Validate(op.Transaction{ID: "tx1"})
	if v.Valid || v.Reason != "Transaction is empty" {
		t.Fatalf("expected empty rejection, got %+v", v)
	}
}

func TestHistoryEviction(t *testing.T) {
	sd := New(newTestDoc(), 0, 2, nil)
	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		tx := op.Transaction{ID: id, Ops: []op.Op{op.New(op.KindScalarSet, path.FromTokens("title"), value.String(id))}}
		sd.Validate(tx)
		sd.Apply(tx)
	}
	if sd.HasProcessed("a") {
		t.Fatal("expected oldest transaction id to be evicted")
	}
	if !sd.HasProcessed("c") {
		t.Fatal("expected most recent transaction id to remain")
	}
}

package op

import (
	"encoding/json"
	"testing"

	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/value"
)

func TestDeduplicableKinds(t *testing.T) {
	if !KindScalarSet.Deduplicable() {
		t.Fatal("scalar.set must be deduplicable")
	}
	if KindListInsert.Deduplicable() {
		t.Fatal("list.insert must not be deduplicable")
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(Transaction{ID: "a"}) {
		t.Fatal("transaction with no ops must be empty")
	}
	if IsEmpty(Transaction{ID: "a", Ops: []Op{{Kind: KindScalarSet}}}) {
		t.Fatal("transaction with an op must not be empty")
	}
}

func TestOpKeyDedup(t *testing.T) {
	p := path.FromTokens("title")
	a := New(KindScalarSet, p, value.String("x"))
	b := New(KindScalarSet, p, value.String("y"))
	if a.Key() != b.Key() {
		t.Fatal("same path+kind must produce equal dedup keys")
	}
}

func TestOpJSONRoundTrip(t *testing.T) {
	o := New(KindScalarSet, path.FromTokens("list", "abc", "name"), value.String("hi"))
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Op
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != o.Kind {
		t.Fatalf("kind mismatch: %v != %v", decoded.Kind, o.Kind)
	}
	if !value.Equal(decoded.Payload, o.Payload) {
		t.Fatalf("payload mismatch")
	}
	if decoded.Path.Encode() != o.Path.Encode() {
		t.Fatalf("path mismatch: %v != %v", decoded.Path, o.Path)
	}
	if got, _ := decoded.Path.Head(); got != "list" {
		t.Fatalf("decoded path not functional: head = %q", got)
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := Transaction{
		ID: "tx-1",
		Ops: []Op{
			New(KindScalarSet, path.FromTokens("title"), value.String("hello")),
		},
		Timestamp: 1234,
	}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != tx.ID || decoded.Timestamp != tx.Timestamp || len(decoded.Ops) != 1 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

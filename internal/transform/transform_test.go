package transform

import (
	"testing"

	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

func testRoot() *schema.Record {
	return schema.NewRecord(map[string]schema.Field{
		"title": {Name: "title", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
		"count": {Name: "count", Schema: schema.NewScalar(schema.ScalarNumber), Kind: schema.FieldWithDefault, Default: value.Number(0)},
	})
}

func TestOpDisjointPathsIdentity(t *testing.T) {
	root := testRoot()
	state, _ := root.InitialState()

	client := op.New(op.KindScalarSet, path.FromTokens("title"), value.String("x"))
	server := op.New(op.KindScalarSet, path.FromTokens("count"), value.Number(1))

	out, err := Op(root, state, client, server)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out.Noop {
		t.Fatal("disjoint ops must never be dropped")
	}
	if out.Op.Path.Encode() != client.Path.Encode() {
		t.Fatalf("expected client op's path preserved, got %v", out.Op.Path)
	}
}

func TestBatchReconcilesAgainstServerHistory(t *testing.T) {
	root := testRoot()
	state, _ := root.InitialState()

	clientOps := []op.Op{op.New(op.KindScalarSet, path.FromTokens("title"), value.String("client-title"))}
	serverTxs := []op.Transaction{
		{ID: "s1", Ops: []op.Op{op.New(op.KindScalarSet, path.FromTokens("count"), value.Number(1))}},
	}

	survivors, err := Batch(root, state, clientOps, serverTxs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(survivors) != 1 {
		t.Fatalf("expected the client op to survive an unrelated server op, got %d", len(survivors))
	}
}

package schema

import (
	"testing"

	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/value"
)

func docSchema() *Record {
	return NewRecord(map[string]Field{
		"title": {Name: "title", Schema: NewScalar(ScalarString), Kind: FieldWithDefault, Default: value.String("")},
		"count": {Name: "count", Schema: NewScalar(ScalarNumber), Kind: FieldWithDefault, Default: value.Number(0)},
	})
}

func TestRecordFieldRouting(t *testing.T) {
	r := docSchema()
	state, _ := r.InitialState()

	setTitle := op.New(op.KindScalarSet, path.FromTokens("title"), value.String("hello"))
	next, err := r.ApplyOp(state, setTitle)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := next.Field("title")
	if s, _ := got.AsString(); s != "hello" {
		t.Fatalf("title = %q", s)
	}
}

func TestRecordUnsetRejectsRequired(t *testing.T) {
	r := NewRecord(map[string]Field{
		"id": {Name: "id", Schema: NewScalar(ScalarString), Kind: FieldRequired},
	})
	state, _ := r.InitialState()
	state = state.WithField("id", value.String("x"))

	unset := op.New(op.KindRecordUnset, path.Empty(), value.Map(map[string]value.Value{"field": value.String("id")}))
	if _, err := r.ApplyOp(state, unset); err == nil {
		t.Fatal("expected error unsetting a required field")
	}
}

func listSchema() *List {
	element := NewRecord(map[string]Field{
		"name": {Name: "name", Schema: NewScalar(ScalarString), Kind: FieldWithDefault, Default: value.String("")},
	})
	return NewList(element)
}

func TestListInsertRemove(t *testing.T) {
	l := listSchema()
	state, _ := l.InitialState()

	insert := op.New(op.KindListInsert, path.Empty(), value.Map(map[string]value.Value{
		"id":    value.String("a"),
		"pos":   value.String("A0"),
		"value": value.Map(map[string]value.Value{"name": value.String("first")}),
	}))
	state, err := l.ApplyOp(state, insert)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	items, _ := state.AsList()
	if len(items) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(items))
	}

	remove := op.New(op.KindListRemove, path.Empty(), value.Map(map[string]value.Value{"id": value.String("a")}))
	state, err = l.ApplyOp(state, remove)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if items, _ := state.AsList(); len(items) != 0 {
		t.Fatalf("expected empty list after remove, got %d", len(items))
	}
}

func TestListElementRouting(t *testing.T) {
	l := listSchema()
	state, _ := l.InitialState()
	insert := op.New(op.KindListInsert, path.Empty(), value.Map(map[string]value.Value{
		"id":    value.String("a"),
		"pos":   value.String("A0"),
		"value": value.Map(map[string]value.Value{"name": value.String("first")}),
	}))
	state, _ = l.ApplyOp(state, insert)

	rename := op.New(op.KindScalarSet, path.FromTokens("a", "name"), value.String("renamed"))
	state, err := l.ApplyOp(state, rename)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	items, _ := state.AsList()
	elValue, _ := items[0].Field("value")
	name, _ := elValue.Field("name")
	s, _ := name.AsString()
	if s != "renamed" {
		t.Fatalf("name = %q", s)
	}
}

func TestListRemoveAbsorbsClientOp(t *testing.T) {
	l := listSchema()
	state, _ := l.InitialState()
	insert := op.New(op.KindListInsert, path.Empty(), value.Map(map[string]value.Value{
		"id":    value.String("x"),
		"pos":   value.String("A0"),
		"value": value.Map(map[string]value.Value{"name": value.String("first")}),
	}))
	state, _ = l.ApplyOp(state, insert)

	serverRemove := op.New(op.KindListRemove, path.Empty(), value.Map(map[string]value.Value{"id": value.String("x")}))
	clientRename := op.New(op.KindScalarSet, path.FromTokens("x", "name"), value.String("new"))

	out, err := l.Transform(state, clientRename, serverRemove)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if !out.Noop {
		t.Fatal("expected Noop when server removed the client's target element")
	}
}

func treeSchema() *Tree {
	data := NewRecord(map[string]Field{
		"label": {Name: "label", Schema: NewScalar(ScalarString), Kind: FieldWithDefault, Default: value.String("")},
	})
	return NewTree("folder", map[string]*TreeNodeType{
		"folder": {Tag: "folder", Data: data, AllowedChildren: []string{"folder"}},
	})
}

func TestTreeCyclePrevention(t *testing.T) {
	tr := treeSchema()
	state, _ := tr.InitialState()

	root := value.Map(map[string]value.Value{
		"id": value.String("root"), "type": value.String("folder"), "parent_id": value.Null(),
		"pos": value.String("A0"), "data": value.Map(map[string]value.Value{"label": value.String("root")}),
	})
	state, err := tr.ApplyOp(state, op.New(op.KindTreeInsert, path.Empty(), root))
	if err != nil {
		t.Fatalf("insert root: %v", err)
	}

	a := value.Map(map[string]value.Value{
		"id": value.String("A"), "type": value.String("folder"), "parent_id": value.String("root"),
		"pos": value.String("A0"), "data": value.Map(map[string]value.Value{"label": value.String("a")}),
	})
	state, err = tr.ApplyOp(state, op.New(op.KindTreeInsert, path.Empty(), a))
	if err != nil {
		t.Fatalf("insert A: %v", err)
	}

	b := value.Map(map[string]value.Value{
		"id": value.String("B"), "type": value.String("folder"), "parent_id": value.String("A"),
		"pos": value.String("A0"), "data": value.Map(map[string]value.Value{"label": value.String("b")}),
	})
	state, err = tr.ApplyOp(state, op.New(op.KindTreeInsert, path.Empty(), b))
	if err != nil {
		t.Fatalf("insert B: %v", err)
	}

	moveAUnderB := op.New(op.KindTreeMove, path.Empty(), value.Map(map[string]value.Value{
		"id": value.String("A"), "parent_id": value.String("B"), "pos": value.String("A0"),
	}))
	if _, err := tr.ApplyOp(state, moveAUnderB); err == nil {
		t.Fatal("expected cycle-prevention error moving A under its own descendant B")
	}
}

func TestTransformDisjointPaths(t *testing.T) {
	r := docSchema()
	state, _ := r.InitialState()
	client := op.New(op.KindScalarSet, path.FromTokens("title"), value.String("x"))
	server := op.New(op.KindScalarSet, path.FromTokens("count"), value.Number(1))

	out, err := r.Transform(state, client, server)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out.Noop {
		t.Fatal("disjoint paths must never produce Noop")
	}
	if out.Op.Path.Encode() != client.Path.Encode() {
		t.Fatalf("expected client op unchanged, got path %v", out.Op.Path)
	}
}

func TestTaggedDelegation(t *testing.T) {
	circle := NewRecord(map[string]Field{
		"kind":   {Name: "kind", Schema: NewLiteral(value.String("circle")), Kind: FieldRequired},
		"radius": {Name: "radius", Schema: NewScalar(ScalarNumber), Kind: FieldWithDefault, Default: value.Number(1)},
	})
	square := NewRecord(map[string]Field{
		"kind": {Name: "kind", Schema: NewLiteral(value.String("square")), Kind: FieldRequired},
		"side": {Name: "side", Schema: NewScalar(ScalarNumber), Kind: FieldWithDefault, Default: value.Number(1)},
	})
	tagged := NewTagged("kind", map[string]*Record{"circle": circle, "square": square})

	state := value.Map(map[string]value.Value{"kind": value.String("circle"), "radius": value.Number(1)})
	setRadius := op.New(op.KindScalarSet, path.FromTokens("radius"), value.Number(5))
	next, err := tagged.ApplyOp(state, setRadius)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	r, _ := next.Field("radius")
	n, _ := r.AsNumber()
	if n != 5 {
		t.Fatalf("radius = %v", n)
	}
}

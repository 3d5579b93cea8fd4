package schema

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// TreeNodeType declares one node type in a tree schema: the record schema
// of its data payload, and the type tags allowed as its children. Children
// are named by tag and resolved through the owning Tree's registry at
// lookup time rather than embedded directly, which is what lets a node
// type legally list itself (or an ancestor) among its own allowed
// children without a construction cycle.
type TreeNodeType struct {
	Tag             string
	Data            *Record
	AllowedChildren []string
}

// Tree is rooted at a single declared root type; every other type is
// reached only as somebody's child.
type Tree struct {
	RootType string
	Types    map[string]*TreeNodeType
}

func NewTree(rootType string, types map[string]*TreeNodeType) *Tree {
	return &Tree{RootType: rootType, Types: types}
}

func (t *Tree) InitialState() (value.Value, bool) {
	return value.List(), true
}

func treeNodes(state value.Value) []value.Value {
	items, ok := state.AsList()
	if !ok {
		return nil
	}
	return items
}

func findTreeNode(nodes []value.Value, id string) (value.Value, int) {
	for i, n := range nodes {
		if f, ok := n.Field("id"); ok {
			if s, ok := f.AsString(); ok && s == id {
				return n, i
			}
		}
	}
	return value.Value{}, -1
}

func nodeParentID(n value.Value) (string, bool) {
	f, ok := n.Field("parent_id")
	if !ok || f.IsNull() {
		return "", false
	}
	return f.AsString()
}

func nodeType(n value.Value) string {
	f, _ := n.Field("type")
	s, _ := f.AsString()
	return s
}

// descendants returns the set of ids transitively parented under id
// (id itself excluded).
func descendants(nodes []value.Value, id string) map[string]bool {
	children := map[string][]string{}
	for _, n := range nodes {
		if pid, ok := nodeParentID(n); ok {
			idField, _ := n.Field("id")
			cid, _ := idField.AsString()
			children[pid] = append(children[pid], cid)
		}
	}
	out := map[string]bool{}
	var walk func(string)
	walk = func(cur string) {
		for _, c := range children[cur] {
			if !out[c] {
				out[c] = true
				walk(c)
			}
		}
	}
	walk(id)
	return out
}

func existingRoot(nodes []value.Value) (value.Value, bool) {
	for _, n := range nodes {
		if _, ok := nodeParentID(n); !ok {
			return n, true
		}
	}
	return value.Value{}, false
}

func (t *Tree) allowedUnder(parentType string, childType string) bool {
	spec, ok := t.Types[parentType]
	if !ok {
		return false
	}
	for _, tag := range spec.AllowedChildren {
		if tag == childType {
			return true
		}
	}
	return false
}

func (t *Tree) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	nodes := treeNodes(state)

	if o.Path.IsEmpty() {
		switch o.Kind {
		case op.KindTreeSet:
			if o.Payload.Kind != value.KindList {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tree.set payload must be an array of nodes"}
			}
			return value.List(append([]value.Value{}, o.Payload.List...)...), nil

		case op.KindTreeInsert:
			node := o.Payload
			idField, ok := node.Field("id")
			id, okID := idField.AsString()
			if !ok || !okID {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tree.insert requires a node id"}
			}
			if _, idx := findTreeNode(nodes, id); idx >= 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "duplicate tree node id " + id}
			}
			typeTag := nodeType(node)
			parentID, hasParent := nodeParentID(node)
			if !hasParent {
				if typeTag != t.RootType {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "root node must have type " + t.RootType}
				}
				if _, exists := existingRoot(nodes); exists {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "a root node already exists"}
				}
			} else {
				parent, pidx := findTreeNode(nodes, parentID)
				if pidx < 0 {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "parent node does not exist"}
				}
				if !t.allowedUnder(nodeType(parent), typeTag) {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "type " + typeTag + " is not allowed under " + nodeType(parent)}
				}
			}
			return value.List(append(append([]value.Value{}, nodes...), node)...), nil

		case op.KindTreeRemove:
			idField, ok := o.Payload.Field("id")
			id, okID := idField.AsString()
			if !ok || !okID {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tree.remove requires an id"}
			}
			if _, idx := findTreeNode(nodes, id); idx < 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no tree node with id " + id}
			}
			doomed := descendants(nodes, id)
			doomed[id] = true
			out := make([]value.Value, 0, len(nodes))
			for _, n := range nodes {
				idField, _ := n.Field("id")
				nid, _ := idField.AsString()
				if !doomed[nid] {
					out = append(out, n)
				}
			}
			return value.List(out...), nil

		case op.KindTreeMove:
			idField, ok := o.Payload.Field("id")
			id, okID := idField.AsString()
			if !ok || !okID {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tree.move requires an id"}
			}
			node, idx := findTreeNode(nodes, id)
			if idx < 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no tree node with id " + id}
			}
			newParentID, hasNewParent := nodeParentID(o.Payload)
			if hasNewParent {
				if newParentID == id || descendants(nodes, id)[newParentID] {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "move would create a cycle"}
				}
				newParent, pidx := findTreeNode(nodes, newParentID)
				if pidx < 0 {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "new parent does not exist"}
				}
				if !t.allowedUnder(nodeType(newParent), nodeType(node)) {
					return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "type not allowed under new parent"}
				}
			} else if nodeType(node) != t.RootType {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "only the root type may have a null parent"}
			}
			posField, hasPos := o.Payload.Field("pos")
			updated := node
			if hasNewParent {
				updated = updated.WithField("parent_id", value.String(newParentID))
			} else {
				updated = updated.WithField("parent_id", value.Null())
			}
			if hasPos {
				updated = updated.WithField("pos", posField)
			}
			out := append([]value.Value{}, nodes...)
			out[idx] = updated
			return value.List(out...), nil

		default:
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tree nodes do not accept this op at the root"}
		}
	}

	token, _ := o.Path.Head()
	node, idx := findTreeNode(nodes, token)
	if idx < 0 {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no tree node with id " + token}
	}
	spec, ok := t.Types[nodeType(node)]
	if !ok {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "unknown node type " + nodeType(node)}
	}
	data, _ := node.Field("data")
	newData, err := spec.Data.ApplyOp(data, o.WithPath(o.Path.Shift()))
	if err != nil {
		return state, err
	}
	if err := spec.Data.Validate(newData); err != nil {
		return state, err
	}
	out := append([]value.Value{}, nodes...)
	out[idx] = node.WithField("data", newData)
	return value.List(out...), nil
}

func (t *Tree) Validate(state value.Value) error {
	nodes := treeNodes(state)
	roots := 0
	for _, n := range nodes {
		if _, ok := nodeParentID(n); !ok {
			roots++
			if nodeType(n) != t.RootType {
				return &docerrors.ValidationError{Kind: "tree", Reason: "root node has wrong type"}
			}
		}
		spec, ok := t.Types[nodeType(n)]
		if !ok {
			return &docerrors.ValidationError{Kind: "tree", Reason: "node has unknown type " + nodeType(n)}
		}
		data, _ := n.Field("data")
		if err := spec.Data.Validate(data); err != nil {
			return err
		}
	}
	if roots > 1 {
		return &docerrors.ValidationError{Kind: "tree", Reason: "more than one root node"}
	}
	return nil
}

func (t *Tree) Transform(state value.Value, clientOp, serverOp op.Op) (Outcome, error) {
	if out, handled := rootCases(state, clientOp, serverOp, op.KindTreeSet); handled {
		return out, nil
	}

	cID, cOK := treeEntryID(clientOp)
	sID, sOK := treeEntryID(serverOp)
	nodes := treeNodes(state)

	if sOK && serverOp.Kind == op.KindTreeRemove {
		if cOK && (cID == sID || descendants(nodes, sID)[cID]) {
			return NoopOutcome(), nil
		}
	}
	if clientOp.Kind == op.KindTreeInsert || serverOp.Kind == op.KindTreeInsert {
		return Transformed(clientOp), nil
	}
	if clientOp.Kind == op.KindTreeMove && serverOp.Kind == op.KindTreeMove && cOK && sOK && cID == sID {
		return Transformed(clientOp), nil
	}
	if !cOK || !sOK || cID != sID {
		return Transformed(clientOp), nil
	}
	if clientOp.Path.IsEmpty() || serverOp.Path.IsEmpty() {
		return Transformed(clientOp), nil
	}

	node, _ := findTreeNode(nodes, cID)
	spec, ok := t.Types[nodeType(node)]
	if !ok {
		return Transformed(clientOp), nil
	}
	data, _ := node.Field("data")
	resolve := func(string) (Node, value.Value, error) {
		return spec.Data, data, nil
	}
	return recurseTransform(resolve, cID, clientOp, serverOp)
}

func treeEntryID(o op.Op) (string, bool) {
	if !o.Path.IsEmpty() {
		token, _ := o.Path.Head()
		return token, true
	}
	switch o.Kind {
	case op.KindTreeInsert, op.KindTreeRemove, op.KindTreeMove:
		f, ok := o.Payload.Field("id")
		if !ok {
			return "", false
		}
		return f.AsString()
	default:
		return "", false
	}
}

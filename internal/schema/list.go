package schema

import (
	"sort"

	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// List is a composite node over an ordered collection of ListEntry<element>
// values, positioned by an opaque OrderKey string carried in the "pos"
// field and identified stably by "id".
type List struct {
	Element   Node
	MinLength *int
	MaxLength *int
}

func NewList(element Node) *List {
	return &List{Element: element}
}

func (l *List) WithLength(min, max *int) *List {
	l.MinLength, l.MaxLength = min, max
	return l
}

func (l *List) InitialState() (value.Value, bool) {
	return value.List(), true
}

func entries(state value.Value) []value.Value {
	items, ok := state.AsList()
	if !ok {
		return nil
	}
	return items
}

func sortByPos(items []value.Value) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, _ := items[i].Field("pos")
		pj, _ := items[j].Field("pos")
		ps, _ := pi.AsString()
		pj2, _ := pj.AsString()
		return ps < pj2
	})
}

func findEntry(items []value.Value, id string) (value.Value, int) {
	for i, e := range items {
		if f, ok := e.Field("id"); ok {
			if s, ok := f.AsString(); ok && s == id {
				return e, i
			}
		}
	}
	return value.Value{}, -1
}

func payloadID(v value.Value) (string, bool) {
	f, ok := v.Field("id")
	if !ok {
		return "", false
	}
	return f.AsString()
}

func (l *List) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	if o.Path.IsEmpty() {
		switch o.Kind {
		case op.KindListSet:
			if o.Payload.Kind != value.KindList {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list.set payload must be an array"}
			}
			items := append([]value.Value{}, o.Payload.List...)
			sortByPos(items)
			return value.List(items...), nil

		case op.KindListInsert:
			id, ok := payloadID(o.Payload)
			if !ok {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list.insert payload requires an id"}
			}
			items := append([]value.Value{}, entries(state)...)
			if _, idx := findEntry(items, id); idx >= 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "duplicate list entry id " + id}
			}
			items = append(items, o.Payload)
			sortByPos(items)
			return value.List(items...), nil

		case op.KindListRemove:
			id, ok := payloadID(o.Payload)
			if !ok {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list.remove payload requires an id"}
			}
			items := entries(state)
			_, idx := findEntry(items, id)
			if idx < 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no list entry with id " + id}
			}
			out := make([]value.Value, 0, len(items)-1)
			out = append(out, items[:idx]...)
			out = append(out, items[idx+1:]...)
			return value.List(out...), nil

		case op.KindListMove:
			id, ok := payloadID(o.Payload)
			if !ok {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list.move payload requires an id"}
			}
			posField, ok := o.Payload.Field("pos")
			pos, okStr := posField.AsString()
			if !ok || !okStr {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list.move payload requires a pos"}
			}
			items := append([]value.Value{}, entries(state)...)
			entry, idx := findEntry(items, id)
			if idx < 0 {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no list entry with id " + id}
			}
			items[idx] = entry.WithField("pos", value.String(pos))
			sortByPos(items)
			return value.List(items...), nil

		default:
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "list nodes do not accept this op at the root"}
		}
	}

	token, _ := o.Path.Head()
	items := append([]value.Value{}, entries(state)...)
	entry, idx := findEntry(items, token)
	if idx < 0 {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "no list entry with id " + token}
	}
	elementValue, _ := entry.Field("value")
	newElementValue, err := l.Element.ApplyOp(elementValue, o.WithPath(o.Path.Shift()))
	if err != nil {
		return state, err
	}
	if err := l.Element.Validate(newElementValue); err != nil {
		return state, err
	}
	items[idx] = entry.WithField("value", newElementValue)
	return value.List(items...), nil
}

func (l *List) Validate(state value.Value) error {
	items := entries(state)
	if l.MinLength != nil && len(items) < *l.MinLength {
		return &docerrors.ValidationError{Kind: "list", Reason: "below min_length"}
	}
	if l.MaxLength != nil && len(items) > *l.MaxLength {
		return &docerrors.ValidationError{Kind: "list", Reason: "above max_length"}
	}
	for _, e := range items {
		ev, _ := e.Field("value")
		if err := l.Element.Validate(ev); err != nil {
			return err
		}
	}
	return nil
}

// entryID resolves the element id an op addresses, whether via a path
// token (nested field mutation) or a payload "id" key (insert/remove/move
// issued at the list's own root).
func entryID(o op.Op) (string, bool) {
	if !o.Path.IsEmpty() {
		token, _ := o.Path.Head()
		return token, true
	}
	switch o.Kind {
	case op.KindListInsert, op.KindListRemove, op.KindListMove:
		return payloadID(o.Payload)
	default:
		return "", false
	}
}

func (l *List) Transform(state value.Value, clientOp, serverOp op.Op) (Outcome, error) {
	if out, handled := rootCases(state, clientOp, serverOp, op.KindListSet); handled {
		return out, nil
	}

	cID, cOK := entryID(clientOp)
	sID, sOK := entryID(serverOp)

	if sOK && serverOp.Kind == op.KindListRemove && cOK && cID == sID {
		// Server deleted the element; client ops on it or its descendants
		// no longer apply.
		return NoopOutcome(), nil
	}
	if clientOp.Kind == op.KindListInsert || serverOp.Kind == op.KindListInsert {
		// Inserts address fresh ids and never conflict with anything.
		return Transformed(clientOp), nil
	}
	if clientOp.Kind == op.KindListMove && serverOp.Kind == op.KindListMove && cOK && sOK && cID == sID {
		return Transformed(clientOp), nil // client wins, last-writer-wins
	}
	if !cOK || !sOK || cID != sID {
		return Transformed(clientOp), nil // independent elements
	}
	if clientOp.Path.IsEmpty() || serverOp.Path.IsEmpty() {
		return Transformed(clientOp), nil
	}

	items := entries(state)
	entry, _ := findEntry(items, cID)
	elementValue, _ := entry.Field("value")
	resolve := func(string) (Node, value.Value, error) {
		return l.Element, elementValue, nil
	}
	return recurseTransform(resolve, cID, clientOp, serverOp)
}

package schema

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// FieldKind classifies how a Record field participates in default
// application and record.unset validity (Rule 3, Rule 8).
type FieldKind int

const (
	// FieldRequired has no default; apply_defaults leaves it missing.
	FieldRequired FieldKind = iota
	// FieldWithDefault supplies a value whenever absent.
	FieldWithDefault
	// FieldOptional may be legitimately absent, with no default.
	FieldOptional
)

// Field describes one declared Record field.
type Field struct {
	Name    string
	Schema  Node
	Kind    FieldKind
	Default value.Value // meaningful when Kind == FieldWithDefault
}

// Refine is a whole-record cross-field predicate (Rule 9).
type Refine func(value.Value) (ok bool, reason string)

// Record is a composite node over named, typed fields.
type Record struct {
	Fields  map[string]Field
	Refines []Refine
}

// NewRecord builds a Record from its field declarations.
func NewRecord(fields map[string]Field) *Record {
	return &Record{Fields: fields}
}

// WithRefine appends a cross-field predicate.
func (r *Record) WithRefine(f Refine) *Record {
	r.Refines = append(r.Refines, f)
	return r
}

func (r *Record) InitialState() (value.Value, bool) {
	out := map[string]value.Value{}
	for name, f := range r.Fields {
		switch f.Kind {
		case FieldWithDefault:
			out[name] = f.Default
		default:
			if iv, ok := f.Schema.InitialState(); ok {
				out[name] = iv
			}
			// FieldRequired/FieldOptional with no computed default stay
			// absent; Rule 8 treats that as the caller's contract.
		}
	}
	return value.Map(out), true
}

// fieldState reads the current state of a named field, treating a missing
// current state (per Rule 4) as an empty record.
func fieldState(state value.Value, name string) value.Value {
	v, ok := state.Field(name)
	if !ok {
		return value.Null()
	}
	return v
}

func (r *Record) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	if o.Path.IsEmpty() {
		switch o.Kind {
		case op.KindRecordSet:
			if o.Payload.Kind != value.KindMap {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "record.set payload must be an object"}
			}
			return o.Payload, nil
		case op.KindRecordUnset:
			field, ok := o.Payload.Field("field")
			name, okName := field.AsString()
			if !ok || !okName {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "record.unset payload must carry a string field name"}
			}
			decl, declared := r.Fields[name]
			if !declared {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "unknown field " + name}
			}
			if decl.Kind == FieldRequired {
				return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "cannot unset required field " + name}
			}
			return state.WithoutField(name), nil
		default:
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "record nodes only accept record.set/record.unset at the root"}
		}
	}

	token, _ := o.Path.Head()
	field, declared := r.Fields[token]
	if !declared {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "unknown field " + token}
	}
	sub := o.WithPath(o.Path.Shift())
	newFieldState, err := field.Schema.ApplyOp(fieldState(state, token), sub)
	if err != nil {
		return state, err
	}
	if err := field.Schema.Validate(newFieldState); err != nil {
		return state, err
	}
	return state.WithField(token, newFieldState), nil
}

func (r *Record) Validate(state value.Value) error {
	for _, f := range r.Refines {
		if ok, reason := f(state); !ok {
			return &docerrors.ValidationError{Kind: "record", Reason: reason}
		}
	}
	return nil
}

// targetField resolves which field an op addresses: via a path token when
// nested, or via the payload's "field" key for a root-level unset.
func targetField(o op.Op) (string, bool) {
	if !o.Path.IsEmpty() {
		token, _ := o.Path.Head()
		return token, true
	}
	if o.Kind == op.KindRecordUnset {
		f, ok := o.Payload.Field("field")
		if !ok {
			return "", false
		}
		name, ok := f.AsString()
		return name, ok
	}
	return "", false
}

func (r *Record) Transform(state value.Value, clientOp, serverOp op.Op) (Outcome, error) {
	if out, handled := rootCases(state, clientOp, serverOp, op.KindRecordSet); handled {
		return out, nil
	}

	cField, cOK := targetField(clientOp)
	sField, sOK := targetField(serverOp)
	if !cOK || !sOK || cField != sField {
		return Transformed(clientOp), nil
	}
	if serverOp.Kind == op.KindRecordUnset {
		// The field server removed no longer exists; any client op still
		// addressing it (or its descendants) no longer applies.
		return NoopOutcome(), nil
	}
	if clientOp.Kind == op.KindRecordUnset {
		return Transformed(clientOp), nil
	}
	if clientOp.Path.IsEmpty() || serverOp.Path.IsEmpty() {
		return Transformed(clientOp), nil
	}
	resolve := func(token string) (Node, value.Value, error) {
		f, ok := r.Fields[token]
		if !ok {
			return nil, value.Value{}, &docerrors.ValidationError{Kind: "record", Reason: "unknown field " + token}
		}
		return f.Schema, fieldState(state, token), nil
	}
	return recurseTransform(resolve, cField, clientOp, serverOp)
}

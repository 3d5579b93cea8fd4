package schema

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// Tagged is a discriminated union over record variants sharing a
// discriminator field whose type is a literal.
type Tagged struct {
	Discriminator string
	Variants      map[string]*Record // keyed by the discriminator's literal value
	DefaultTag    string              // optional; empty means no default
}

func NewTagged(discriminator string, variants map[string]*Record) *Tagged {
	return &Tagged{Discriminator: discriminator, Variants: variants}
}

func (t *Tagged) WithDefaultVariant(tag string) *Tagged {
	t.DefaultTag = tag
	return t
}

func (t *Tagged) InitialState() (value.Value, bool) {
	if t.DefaultTag == "" {
		return value.Null(), false
	}
	variant, ok := t.Variants[t.DefaultTag]
	if !ok {
		return value.Null(), false
	}
	iv, _ := variant.InitialState()
	return iv.WithField(t.Discriminator, value.String(t.DefaultTag)), true
}

func (t *Tagged) activeVariant(state value.Value) (*Record, string, bool) {
	tagVal, ok := state.Field(t.Discriminator)
	if !ok {
		return nil, "", false
	}
	tag, ok := tagVal.AsString()
	if !ok {
		return nil, "", false
	}
	variant, ok := t.Variants[tag]
	return variant, tag, ok
}

func (t *Tagged) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	if o.Path.IsEmpty() && o.Kind == op.KindTaggedSet {
		if o.Payload.Kind != value.KindMap {
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "tagged.set payload must be an object"}
		}
		tagVal, ok := o.Payload.Field(t.Discriminator)
		if !ok {
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "payload missing discriminator field " + t.Discriminator}
		}
		tag, ok := tagVal.AsString()
		if !ok {
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "discriminator must be a string"}
		}
		if _, known := t.Variants[tag]; !known {
			return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "unknown variant " + tag}
		}
		return o.Payload, nil
	}

	// Rule 6: nested ops delegate to the currently active variant
	// determined from state — no path token is consumed doing so.
	variant, _, ok := t.activeVariant(state)
	if !ok {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "cannot nest into an undefined tagged value"}
	}
	return variant.ApplyOp(state, o)
}

func (t *Tagged) Validate(state value.Value) error {
	variant, _, ok := t.activeVariant(state)
	if !ok {
		return &docerrors.ValidationError{Kind: "tagged", Reason: "state does not carry a known discriminator value"}
	}
	return variant.Validate(state)
}

func (t *Tagged) Transform(state value.Value, clientOp, serverOp op.Op) (Outcome, error) {
	if out, handled := rootCases(state, clientOp, serverOp, op.KindTaggedSet); handled {
		return out, nil
	}
	// Neither op is a whole-value replace; both delegate to the active
	// variant (per server state) without consuming a path token.
	variant, _, ok := t.activeVariant(state)
	if !ok {
		return Transformed(clientOp), nil
	}
	return variant.Transform(state, clientOp, serverOp)
}

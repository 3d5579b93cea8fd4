package schema

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// Sum is an either-type over a small set of scalar/literal leaf schemas;
// unlike Tagged it carries no discriminator field — the payload's own
// shape determines which variant accepted it.
type Sum struct {
	Variants []*Scalar
}

func NewSum(variants ...*Scalar) *Sum {
	return &Sum{Variants: variants}
}

func (s *Sum) InitialState() (value.Value, bool) {
	return value.Null(), false
}

func (s *Sum) matching(v value.Value) *Scalar {
	for _, variant := range s.Variants {
		if variant.typeMatches(v) {
			return variant
		}
	}
	return nil
}

func (s *Sum) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	if !o.Path.IsEmpty() {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "sum nodes are leaves and have no children"}
	}
	if o.Kind != op.KindSumSet {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "sum nodes only accept sum.set"}
	}
	if s.matching(o.Payload) == nil {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "payload does not match any declared variant"}
	}
	return o.Payload, nil
}

func (s *Sum) Validate(state value.Value) error {
	if s.matching(state) == nil {
		return &docerrors.ValidationError{Kind: "sum", Reason: "state does not match any declared variant"}
	}
	return nil
}

func (s *Sum) Transform(_ value.Value, clientOp, _ op.Op) (Outcome, error) {
	return Transformed(clientOp), nil
}

package schema

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// ScalarType names the primitive shape a Scalar node accepts.
type ScalarType int

const (
	ScalarString ScalarType = iota
	ScalarNumber
	ScalarBoolean
	ScalarLiteral
)

// Validator checks a post-apply scalar value, returning a reason string on
// failure (min/max/regex/int/positive per Rule 9).
type Validator func(value.Value) (ok bool, reason string)

// Scalar is a leaf schema node for string|number|boolean|literal(v).
type Scalar struct {
	Type       ScalarType
	Literal    value.Value // meaningful when Type == ScalarLiteral
	Default    *value.Value
	Required   bool
	Validators []Validator
}

// NewScalar builds a Scalar of the given primitive type.
func NewScalar(t ScalarType) *Scalar {
	return &Scalar{Type: t}
}

// NewLiteral builds a Scalar pinned to a single literal value.
func NewLiteral(v value.Value) *Scalar {
	return &Scalar{Type: ScalarLiteral, Literal: v}
}

// WithDefault attaches a default value, returning s for chaining.
func (s *Scalar) WithDefault(v value.Value) *Scalar {
	s.Default = &v
	return s
}

// WithRequired marks s as required (used by Record field classification).
func (s *Scalar) WithRequired(r bool) *Scalar {
	s.Required = r
	return s
}

// WithValidator appends a post-apply validator.
func (s *Scalar) WithValidator(v Validator) *Scalar {
	s.Validators = append(s.Validators, v)
	return s
}

func (s *Scalar) InitialState() (value.Value, bool) {
	if s.Default != nil {
		return *s.Default, true
	}
	if s.Type == ScalarLiteral {
		return s.Literal, true
	}
	return value.Null(), false
}

func (s *Scalar) typeMatches(v value.Value) bool {
	switch s.Type {
	case ScalarString:
		return v.Kind == value.KindString
	case ScalarNumber:
		return v.Kind == value.KindNumber
	case ScalarBoolean:
		return v.Kind == value.KindBool
	case ScalarLiteral:
		return value.Equal(v, s.Literal)
	default:
		return false
	}
}

func (s *Scalar) ApplyOp(state value.Value, o op.Op) (value.Value, error) {
	if o.Kind != op.KindScalarSet {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "scalar nodes only accept scalar.set"}
	}
	if !o.Path.IsEmpty() {
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: "scalar nodes have no children to route into"}
	}
	if !s.typeMatches(o.Payload) {
		reason := "payload type does not match scalar type"
		if s.Type == ScalarLiteral {
			reason = "payload does not equal the declared literal"
		}
		return state, &docerrors.ValidationError{Path: o.Path.Encode(), Kind: string(o.Kind), Reason: reason}
	}
	return o.Payload, nil
}

func (s *Scalar) Validate(state value.Value) error {
	for _, v := range s.Validators {
		if ok, reason := v(state); !ok {
			return &docerrors.ValidationError{Kind: "scalar", Reason: reason}
		}
	}
	return nil
}

func (s *Scalar) Transform(_ value.Value, clientOp, _ op.Op) (Outcome, error) {
	// A scalar is always a leaf: both ops necessarily target it at the
	// empty path, so Rule 11's "same composite *.set" last-writer-wins case
	// applies unconditionally.
	return Transformed(clientOp), nil
}

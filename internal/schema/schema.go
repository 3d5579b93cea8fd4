// Package schema implements the recursive typed-state description that
// Document and ServerDocument apply operations against: scalar, record,
// list, tagged union, sum, and tree node families, each behind the same
// small vtable contract, the way the teacher dispatches storage behavior
// per table.DataType rather than through per-kind free functions.
package schema

import (
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/value"
)

// Node is the behavioral contract every schema node family implements.
type Node interface {
	// InitialState returns the node's computed default state, or false if
	// the node has no default (a required field with no default).
	InitialState() (value.Value, bool)

	// ApplyOp applies o (already routed to this node, i.e. o.Path is
	// relative to this node) to state and returns the new state. It may
	// return a *docerrors.ValidationError.
	ApplyOp(state value.Value, o op.Op) (value.Value, error)

	// Validate runs this node's post-apply invariants (refine predicates,
	// length/range constraints) against state.
	Validate(state value.Value) error

	// Transform reconciles clientOp against serverOp, both already routed
	// to this node (relative paths), against the server's current state at
	// this node, per the OT rules in Rule 11. State is needed for
	// tagged-union variant delegation and tree descendant absorption; it is
	// never mutated.
	Transform(state value.Value, clientOp, serverOp op.Op) (Outcome, error)
}

// Outcome is the result of Transform: either a rewritten client op, or a
// Noop signalling the client op should be dropped entirely.
type Outcome struct {
	Op   op.Op
	Noop bool
}

// Transformed wraps a surviving, possibly-rewritten client op.
func Transformed(o op.Op) Outcome { return Outcome{Op: o} }

// NoopOutcome signals the client op no longer applies.
func NoopOutcome() Outcome { return Outcome{Noop: true} }

// wholeReplace reports whether o is a whole-node replacement op targeting
// this node directly (empty relative path).
func wholeReplace(o op.Op, setKind op.Kind) bool {
	return o.Path.IsEmpty() && o.Kind == setKind
}

// rootCases implements the first three branches of Rule 11 that are
// identical across every composite node family: disjoint paths, and
// whole-node-replace vs. child-targeting combinations. ok is false when
// neither op is a whole replace, meaning the caller must apply its own
// kind-specific child logic.
func rootCases(state value.Value, clientOp, serverOp op.Op, setKind op.Kind) (Outcome, bool) {
	if !path.Overlap(clientOp.Path, serverOp.Path) {
		return Transformed(clientOp), true
	}
	cWhole := wholeReplace(clientOp, setKind)
	sWhole := wholeReplace(serverOp, setKind)
	switch {
	case cWhole && sWhole:
		return Transformed(clientOp), true // last-writer-wins
	case sWhole:
		return Transformed(clientOp), true // optimistic: server may reject
	case cWhole:
		return Transformed(clientOp), true // client supersedes
	default:
		return Outcome{}, false
	}
}

// recurseTransform implements the "same first token" branch of Rule 11:
// resolve the sub-node addressed by token, recurse with both ops' paths
// shifted, and restore token onto the result as recursion unwinds.
func recurseTransform(resolve func(token string) (Node, value.Value, error), token string, clientOp, serverOp op.Op) (Outcome, error) {
	child, childState, err := resolve(token)
	if err != nil {
		return Outcome{}, err
	}
	shiftedClient := clientOp.WithPath(clientOp.Path.Shift())
	shiftedServer := serverOp.WithPath(serverOp.Path.Shift())
	out, err := child.Transform(childState, shiftedClient, shiftedServer)
	if err != nil {
		return Outcome{}, err
	}
	if out.Noop {
		return NoopOutcome(), nil
	}
	return Transformed(out.Op.WithPath(prependToken(token, out.Op.Path))), nil
}

// prependToken rebuilds the path a level of recursion just shifted off,
// reconstructing the client's original path incrementally as each
// recursion level unwinds (Rule 11: "restore the original client path on
// the result").
func prependToken(token string, p path.Path) path.Path {
	return path.FromTokens(token).Concat(p)
}

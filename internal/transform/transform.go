// Package transform exposes the top-level entry point into the recursive,
// schema-structural OT transform defined in schema.Node.Transform (Rule
// 11): reconciling a client op against a server op that committed first,
// and reconciling an entire pending buffer against a batch of server
// transactions replayed in order.
package transform

import (
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

// Op transforms a single clientOp against a single serverOp, using root as
// the document's schema. state is the state serverOp applies to (before it
// is applied), as Batch passes it.
func Op(root schema.Node, state value.Value, clientOp, serverOp op.Op) (schema.Outcome, error) {
	return root.Transform(state, clientOp, serverOp)
}

// Batch reconciles a client's pending ops against an ordered sequence of
// server transactions the client has not yet seen, threading state through
// each server op in turn (root.ApplyOp) so later transforms see the
// correct post-server-op state. A client op that transforms to Noop against
// any server op is dropped from the remaining sequence.
func Batch(root schema.Node, baseState value.Value, clientOps []op.Op, serverTxs []op.Transaction) ([]op.Op, error) {
	state := baseState
	survivors := append([]op.Op{}, clientOps...)

	for _, tx := range serverTxs {
		for _, serverOp := range tx.Ops {
			next := survivors[:0]
			for _, clientOp := range survivors {
				out, err := root.Transform(state, clientOp, serverOp)
				if err != nil {
					return nil, err
				}
				if !out.Noop {
					next = append(next, out.Op)
				}
			}
			survivors = next

			newState, err := root.ApplyOp(state, serverOp)
			if err != nil {
				return nil, err
			}
			state = newState
		}
	}
	return survivors, nil
}

// Package document implements the state container over a schema: it
// applies operations, tracks an ordered, dedup-indexed pending buffer, and
// supports a nested-disallowed scoped transaction with rollback.
package document

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

// IDGenerator and Clock are injected so Document.Flush can stamp fresh
// transaction ids/timestamps without reaching for global mutable state —
// the teacher's GenerateKey()/uuid.NewV7() idiom, generalized to an
// interface so tests can supply deterministic values.
type IDGenerator func() string
type Clock func() int64

// Document is a state container over an immutable schema.
type Document struct {
	schema schema.Node
	state  value.Value

	pendingOps []op.Op
	dedupIndex map[op.DedupKey]int

	txActive   bool
	txSnapshot value.Value
	txOps      []op.Op

	newID IDGenerator
	now   Clock
}

// Options configure Document construction. Exactly one of State or Initial
// should be set; precedence is State > Initial > the schema's own computed
// initial state (spec.md §4.5).
type Options struct {
	State   *value.Value
	Initial *value.Value
	NewID   IDGenerator
	Now     Clock
}

// New builds a Document from a schema and construction options.
func New(s schema.Node, opts Options) *Document {
	var state value.Value
	switch {
	case opts.State != nil:
		state = *opts.State
	case opts.Initial != nil:
		state = schema.ApplyDefaults(s, *opts.Initial)
	default:
		if iv, ok := s.InitialState(); ok {
			state = iv
		} else {
			state = value.Null()
		}
	}
	return &Document{
		schema:     s,
		state:      state,
		dedupIndex: map[op.DedupKey]int{},
		newID:      opts.NewID,
		now:        opts.Now,
	}
}

// State returns the document's current state.
func (d *Document) State() value.Value { return d.state }

// PendingOps returns a copy of the dedup-ordered pending buffer.
func (d *Document) PendingOps() []op.Op {
	out := make([]op.Op, len(d.pendingOps))
	copy(out, d.pendingOps)
	return out
}

// pushPending inserts o into the pending buffer, applying Rule 10 dedup:
// a later push of a deduplicable (path, kind) pair removes the earlier
// entry and re-appends at the tail.
func (d *Document) pushPending(o op.Op) {
	if o.Kind.Deduplicable() {
		key := o.Key()
		if idx, ok := d.dedupIndex[key]; ok {
			d.pendingOps = append(d.pendingOps[:idx], d.pendingOps[idx+1:]...)
			d.reindexFrom(idx)
		}
		d.dedupIndex[key] = len(d.pendingOps)
	}
	d.pendingOps = append(d.pendingOps, o)
}

func (d *Document) reindexFrom(from int) {
	for i := from; i < len(d.pendingOps); i++ {
		if d.pendingOps[i].Kind.Deduplicable() {
			d.dedupIndex[d.pendingOps[i].Key()] = i
		}
	}
}

// applyOne routes o through the schema and validates the result, updating
// current_state. It does not touch the pending buffer.
func (d *Document) applyOne(o op.Op) error {
	next, err := d.schema.ApplyOp(d.state, o)
	if err != nil {
		return err
	}
	if err := d.schema.Validate(next); err != nil {
		return err
	}
	d.state = next
	return nil
}

// Transaction runs f in a scoped transaction: ops pushed via Push inside f
// are applied immediately to current_state so f can observe their effect,
// but are rolled back entirely (state and tx ops discarded) if f returns an
// error. Nesting is disallowed.
func (d *Document) Transaction(f func() error) error {
	if d.txActive {
		return &docerrors.NestedTransactionError{}
	}
	d.txActive = true
	d.txSnapshot = d.state
	d.txOps = nil

	err := f()

	if err != nil {
		d.state = d.txSnapshot
		d.txOps = nil
		d.txActive = false
		return err
	}

	for _, o := range d.txOps {
		d.pushPending(o)
	}
	d.txOps = nil
	d.txActive = false
	return nil
}

// Push applies o to current_state and records it for the pending buffer.
// Outside a transaction it behaves as a one-op transaction: on failure the
// pre-op state is restored and the op is not queued.
func (d *Document) Push(o op.Op) error {
	if d.txActive {
		if err := d.applyOne(o); err != nil {
			return err
		}
		d.txOps = append(d.txOps, o)
		return nil
	}
	return d.Transaction(func() error {
		if err := d.applyOne(o); err != nil {
			return err
		}
		d.txOps = append(d.txOps, o)
		return nil
	})
}

// Apply applies already-confirmed external ops directly to state, never
// touching the pending buffer. Failure is fatal for this document: partial
// effects are undefined and the caller must treat the document as needing
// re-restoration.
func (d *Document) Apply(ops []op.Op) error {
	for _, o := range ops {
		if err := d.applyOne(o); err != nil {
			return &docerrors.OperationError{Reason: err.Error()}
		}
	}
	return nil
}

// Flush drains the pending buffer into a new Transaction with a fresh id
// and timestamp. The pending buffer is empty afterward.
func (d *Document) Flush() op.Transaction {
	ops := d.pendingOps
	d.pendingOps = nil
	d.dedupIndex = map[op.DedupKey]int{}

	id := ""
	if d.newID != nil {
		id = d.newID()
	}
	var ts int64
	if d.now != nil {
		ts = d.now()
	}
	return op.Transaction{ID: id, Ops: ops, Timestamp: ts}
}

// Clone returns an independent Document sharing the same immutable schema
// but carrying a copy of state, used by ServerDocument.Validate's
// side-effect-free scratch application.
func Clone(src *Document) *Document {
	return &Document{
		schema:     src.schema,
		state:      src.state,
		dedupIndex: map[op.DedupKey]int{},
		newID:      src.newID,
		now:        src.now,
	}
}

// Schema exposes the underlying schema node, for callers that build
// sibling documents over the same schema.
func (d *Document) Schema() schema.Node { return d.schema }

// Package serverdoc implements the authoritative wrapper around a Document:
// version counter, bounded transaction-id dedup set, and the
// validate/apply split two-phase commit depends on.
package serverdoc

import (
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/document"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// BroadcastFunc is invoked synchronously at the end of Apply with the
// committed transaction and the version it produced.
type BroadcastFunc func(tx op.Transaction, version uint64)

// RejectFunc is the rejection callback passed to Submit, which invokes it
// when a transaction fails validation or apply. DocumentInstance does not
// use it; it reports rejections itself.
type RejectFunc func(txID string, reason string)

// ValidateResult is the side-effect-free outcome of Validate.
type ValidateResult struct {
	Valid       bool
	NextVersion uint64
	Reason      string
}

// ServerDocument wraps a Document with authoritative version tracking and
// transaction-id deduplication.
type ServerDocument struct {
	doc     *document.Document
	version uint64

	processedOrder []string
	processedSet   map[string]bool
	maxHistory      int

	broadcast BroadcastFunc
}

// New builds a ServerDocument over doc, starting at startVersion (the
// restored base version), with the given dedup capacity and broadcast
// callback.
func New(doc *document.Document, startVersion uint64, maxHistory int, broadcast BroadcastFunc) *ServerDocument {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &ServerDocument{
		doc:          doc,
		version:      startVersion,
		processedSet: map[string]bool{},
		maxHistory:   maxHistory,
		broadcast:    broadcast,
	}
}

// CurrentVersion returns the authoritative version counter.
func (s *ServerDocument) CurrentVersion() uint64 { return s.version }

// HasProcessed reports whether id has already been committed.
func (s *ServerDocument) HasProcessed(id string) bool {
	return s.processedSet[id]
}

// Snapshot returns the current {state, version} pair without side effects.
func (s *ServerDocument) Snapshot() (value.Value, uint64) {
	return s.doc.State(), s.version
}

// Validate is side-effect-free: it rejects empty/duplicate transactions and
// otherwise attempts tx.Ops against a scratch clone of the current state,
// reporting the version the transaction would produce if applied.
func (s *ServerDocument) Validate(tx op.Transaction) ValidateResult {
	if op.IsEmpty(tx) {
		return ValidateResult{Reason: "Transaction is empty"}
	}
	if s.HasProcessed(tx.ID) {
		return ValidateResult{Reason: "Transaction has already been processed"}
	}

	scratch := document.Clone(s.doc)
	for _, o := range tx.Ops {
		if err := scratch.Apply([]op.Op{o}); err != nil {
			return ValidateResult{Reason: errReason(err)}
		}
	}
	return ValidateResult{Valid: true, NextVersion: s.version + 1}
}

func errReason(err error) string {
	if ve, ok := err.(*docerrors.ValidationError); ok {
		return ve.Error()
	}
	return err.Error()
}

// Apply mutates state, increments the version, records tx.ID (evicting the
// oldest recorded id if over capacity), and invokes the broadcast callback.
// Callers must only call Apply after a Validate that succeeded for this tx
// against the current state — ServerDocument does not re-check.
func (s *ServerDocument) Apply(tx op.Transaction) error {
	if err := s.doc.Apply(tx.Ops); err != nil {
		return err
	}
	s.version++
	s.recordProcessed(tx.ID)
	if s.broadcast != nil {
		s.broadcast(tx, s.version)
	}
	return nil
}

func (s *ServerDocument) recordProcessed(id string) {
	s.processedSet[id] = true
	s.processedOrder = append(s.processedOrder, id)
	for len(s.processedOrder) > s.maxHistory {
		oldest := s.processedOrder[0]
		s.processedOrder = s.processedOrder[1:]
		delete(s.processedSet, oldest)
	}
}

// SubmitResult is Submit's outcome.
type SubmitResult struct {
	OK      bool
	Version uint64
	Reason  string
}

// Replay applies an already-durable transaction read back from the WAL
// (or being re-applied after a crash) the same way Apply does. It exists
// as a distinctly named entry point so restore call sites never look like
// they are routing through the two-phase Submit convenience.
func (s *ServerDocument) Replay(tx op.Transaction) error {
	return s.Apply(tx)
}

// Submit is the convenience composition validate-then-apply. Per
// spec.md §9's open question, DocumentInstance.Submit must NOT route
// through this method — it needs the WAL append to happen between
// validate and apply, which this single-step convenience does not allow.
// Submit exists for callers (tests, offline tooling) with no durability
// requirement.
func (s *ServerDocument) Submit(tx op.Transaction, reject RejectFunc) SubmitResult {
	v := s.Validate(tx)
	if !v.Valid {
		if reject != nil {
			reject(tx.ID, v.Reason)
		}
		return SubmitResult{Reason: v.Reason}
	}
	if err := s.Apply(tx); err != nil {
		if reject != nil {
			reject(tx.ID, err.Error())
		}
		return SubmitResult{Reason: err.Error()}
	}
	return SubmitResult{OK: true, Version: s.version}
}

// Package docerrors declares the typed error values surfaced by the
// schema, document, and persistence layers, in the teacher's
// pkg/errors idiom (a struct per error kind with a descriptive Error()
// method) rather than stdlib sentinel values.
package docerrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Wrap and Wrapf re-export cockroachdb/errors so callers in this module
// never need to import it directly; every cause attached to a ColdError or
// HotError goes through here.
var (
	Wrap  = errors.Wrap
	Wrapf = errors.Wrapf
	Is    = errors.Is
	New   = errors.New
)

// ValidationError reports a schema- or invariant-level rejection of an op.
type ValidationError struct {
	Path   string
	Kind   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %q for op %q: %s", e.Path, e.Kind, e.Reason)
}

// NestedTransactionError is raised synchronously by Document.Transaction
// when a transaction is already open.
type NestedTransactionError struct{}

func (e *NestedTransactionError) Error() string {
	return "cannot open a transaction while one is already active"
}

// OperationError reports that Document.Apply failed on an externally
// confirmed op. Callers must treat the document as fatally inconsistent.
type OperationError struct {
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("apply failed: %s", e.Reason)
}

// VersionGapError reports that HotStore.AppendChecked's contiguity
// invariant was violated.
type VersionGapError struct {
	DocID           string
	Expected        uint64
	ActualPrevious  uint64
	HasActualPrev   bool
}

func (e *VersionGapError) Error() string {
	if !e.HasActualPrev {
		return fmt.Sprintf("version gap for doc %q: expected version %d but no prior entry exists", e.DocID, e.Expected)
	}
	return fmt.Sprintf("version gap for doc %q: expected version %d but last stored version was %d", e.DocID, e.Expected, e.ActualPrevious)
}

// ColdError reports a cold-store transport/storage failure.
type ColdError struct {
	DocID string
	Op    string // "load" | "save" | "delete"
	Cause error
}

func (e *ColdError) Error() string {
	return fmt.Sprintf("cold store %s failed for doc %q: %v", e.Op, e.DocID, e.Cause)
}

func (e *ColdError) Unwrap() error { return e.Cause }

// HotError reports a hot-store (WAL) transport/storage failure.
type HotError struct {
	DocID string
	Op    string // "append" | "get_since" | "truncate" | "append_checked"
	Cause error
}

func (e *HotError) Error() string {
	return fmt.Sprintf("hot store %s failed for doc %q: %v", e.Op, e.DocID, e.Cause)
}

func (e *HotError) Unwrap() error { return e.Cause }

// DuplicateTransactionError is a validate-time rejection: the transaction
// id has already been processed for this document.
type DuplicateTransactionError struct {
	TxID string
}

func (e *DuplicateTransactionError) Error() string {
	return "Transaction has already been processed"
}

// EmptyTransactionError is a validate-time rejection: the transaction
// carries zero operations.
type EmptyTransactionError struct{}

func (e *EmptyTransactionError) Error() string {
	return "Transaction is empty"
}

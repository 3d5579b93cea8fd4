// Package op declares the Operation and Transaction value types that flow
// between Document, ServerDocument, and the two stores.
package op

import (
	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/value"
)

// Kind enumerates the closed set of operation kinds a schema node family
// recognizes. The zero value is never a valid kind.
type Kind string

const (
	KindScalarSet  Kind = "scalar.set"
	KindRecordSet  Kind = "record.set"
	KindRecordUnset Kind = "record.unset"
	KindListSet    Kind = "list.set"
	KindListInsert Kind = "list.insert"
	KindListRemove Kind = "list.remove"
	KindListMove   Kind = "list.move"
	KindTaggedSet  Kind = "tagged.set"
	KindSumSet     Kind = "sum.set"
	KindTreeSet    Kind = "tree.set"
	KindTreeInsert Kind = "tree.insert"
	KindTreeRemove Kind = "tree.remove"
	KindTreeMove   Kind = "tree.move"
)

// Deduplicable reports whether repeated ops with the same (encoded-path,
// kind) collapse within one pending buffer, per spec.md Rule 10. Only the
// *.set kinds are deduplicable; insert/remove/move are retained in order.
func (k Kind) Deduplicable() bool {
	switch k {
	case KindScalarSet, KindRecordSet, KindListSet, KindTaggedSet, KindSumSet, KindTreeSet:
		return true
	default:
		return false
	}
}

// Op is a single state edit: kind, target path, and a dynamic payload.
type Op struct {
	Kind    Kind
	Path    path.Path
	Payload value.Value
}

// New builds an Op with the given kind, path, and payload.
func New(kind Kind, p path.Path, payload value.Value) Op {
	return Op{Kind: kind, Path: p, Payload: payload}
}

// WithPath returns a copy of o with its path replaced, used by Document
// routing and by the OT transform to restore the original client path on a
// recursed result.
func (o Op) WithPath(p path.Path) Op {
	o.Path = p
	return o
}

// DedupKey identifies o within a pending buffer for Rule 10 collapsing.
// Only meaningful when o.Kind.Deduplicable().
type DedupKey struct {
	EncodedPath string
	Kind        Kind
}

// Key returns o's dedup key.
func (o Op) Key() DedupKey {
	return DedupKey{EncodedPath: o.Path.Encode(), Kind: o.Kind}
}

// Transaction is a batch of ordered operations carrying a globally unique
// id; it is the unit of commit, dedup, and broadcast.
type Transaction struct {
	ID        string
	Ops       []Op
	Timestamp int64
}

// IsEmpty reports whether tx carries zero operations; empty transactions
// are invalid per spec.md §4.3.
func IsEmpty(tx Transaction) bool {
	return len(tx.Ops) == 0
}

// Package config declares the recognized engine and per-document-type
// configuration surface (spec.md §6 Configuration table), loaded the way
// the teacher's CLI loads flags/env — see cmd/collabdocd for the cobra
// wiring that populates these structs.
package config

import (
	"time"

	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

// InitialFunc computes a document's initial state from context. Both a
// plain value and a function are accepted configuration shapes (spec.md §9
// open question); Initial normalizes to this function form.
type InitialFunc func(ctx InitialContext) value.Value

// InitialContext is passed to an InitialFunc.
type InitialContext struct {
	DocID string
}

// DocumentTypeConfig configures one schema-typed family of documents.
type DocumentTypeConfig struct {
	Schema                schema.Node
	Initial               InitialFunc
	MaxTransactionHistory int
	SnapshotInterval      time.Duration
	SnapshotTxThreshold   int
}

// ConstantInitial wraps a fixed value as an InitialFunc, normalizing the
// "initial is a plain object" configuration shape.
func ConstantInitial(v value.Value) InitialFunc {
	return func(InitialContext) value.Value { return v }
}

// EngineConfig configures the registry-level behavior shared by every
// document type.
type EngineConfig struct {
	MaxIdleTime time.Duration
	Types       map[string]DocumentTypeConfig
}

// DefaultMaxIdleTime is spec.md's default for max_idle_time.
const DefaultMaxIdleTime = 5 * time.Minute

// DefaultMaxTransactionHistory is spec.md's default dedup set capacity.
const DefaultMaxTransactionHistory = 1000

// WithDefaults returns cfg with zero-valued fields replaced by spec.md's
// documented defaults. Defaulted Types entries are written back into
// cfg.Types, which is the same map the caller passed in.
func (cfg EngineConfig) WithDefaults() EngineConfig {
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = DefaultMaxIdleTime
	}
	for name, dt := range cfg.Types {
		if dt.MaxTransactionHistory <= 0 {
			dt.MaxTransactionHistory = DefaultMaxTransactionHistory
		}
		cfg.Types[name] = dt
	}
	return cfg
}

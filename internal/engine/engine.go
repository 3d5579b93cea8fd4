// Package engine implements the document registry: get-or-restore,
// per-document dispatch of submit/snapshot/subscribe/touch, and idle
// eviction. At most one live Instance exists per (document type, document
// id) pair at a time.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/collabdoc/engine/internal/coldstore"
	"github.com/collabdoc/engine/internal/config"
	"github.com/collabdoc/engine/internal/document"
	"github.com/collabdoc/engine/internal/hotstore"
	"github.com/collabdoc/engine/internal/instance"
	"github.com/collabdoc/engine/internal/log"
	"github.com/collabdoc/engine/internal/metrics"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/value"
)

// docKey identifies one document: its type name (selecting a
// config.DocumentTypeConfig) and its id.
type docKey struct {
	docType string
	docID   string
}

// Engine is the registry of live DocumentInstances. Construct one per
// process; it is safe for concurrent use across documents (per-document
// work is serialized by the instance itself, not by Engine).
type Engine struct {
	cfg     config.EngineConfig
	cold    coldstore.Store
	hot     hotstore.Store
	newID   document.IDGenerator
	clock   document.Clock
	metrics metrics.Collector

	schemaVersion uint32

	mu        sync.Mutex
	instances map[docKey]*instance.Instance

	stop chan struct{}
	done chan struct{}
}

// New builds an Engine. schemaVersion is stamped onto every StoredDoc this
// process writes; callers bump it when a schema migration ships.
func New(cfg config.EngineConfig, cold coldstore.Store, hot hotstore.Store, schemaVersion uint32, newID document.IDGenerator, clock document.Clock, collector metrics.Collector) *Engine {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Engine{
		cfg:           cfg.WithDefaults(),
		cold:          cold,
		hot:           hot,
		newID:         newID,
		clock:         clock,
		metrics:       collector,
		schemaVersion: schemaVersion,
		instances:     map[docKey]*instance.Instance{},
	}
}

// GetOrRestore returns the live instance for (docType, docID), restoring it
// from cold+hot storage on first access. Idempotent: concurrent callers for
// the same key observe the same *instance.Instance.
func (e *Engine) GetOrRestore(docType, docID string) (*instance.Instance, error) {
	key := docKey{docType: docType, docID: docID}

	e.mu.Lock()
	if inst, ok := e.instances[key]; ok {
		e.mu.Unlock()
		return inst, nil
	}
	e.mu.Unlock()

	typeCfg, ok := e.cfg.Types[docType]
	if !ok {
		return nil, fmt.Errorf("engine: unknown document type %q", docType)
	}

	inst, err := instance.Restore(docID, typeCfg, instance.Deps{
		Cold:          e.cold,
		Hot:           e.hot,
		SchemaVersion: e.schemaVersion,
		NewID:         e.newID,
		Now:           e.clock,
		Metrics:       e.metrics,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if existing, ok := e.instances[key]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.instances[key] = inst
	count := len(e.instances)
	e.mu.Unlock()
	e.metrics.ActiveInstances(count)

	return inst, nil
}

// Submit restores docType/docID if necessary and submits tx to it.
func (e *Engine) Submit(docType, docID string, tx op.Transaction) (instance.SubmitOutcome, error) {
	inst, err := e.GetOrRestore(docType, docID)
	if err != nil {
		return instance.SubmitOutcome{}, err
	}
	return inst.Submit(tx), nil
}

// Snapshot forces a cold snapshot save for docType/docID.
func (e *Engine) Snapshot(docType, docID string) error {
	inst, err := e.GetOrRestore(docType, docID)
	if err != nil {
		return err
	}
	return inst.SaveSnapshot()
}

// Subscribe registers a new receiver of commit/reject events for
// docType/docID. Subscribers only see events published after Subscribe
// returns — spec.md §4.9's "restartable from the tail" contract; a late
// subscriber reconciles via a separately fetched snapshot/state read.
func (e *Engine) Subscribe(docType, docID string) (int, <-chan instance.Event, error) {
	inst, err := e.GetOrRestore(docType, docID)
	if err != nil {
		return 0, nil, err
	}
	id, ch := inst.Subscribe()
	return id, ch, nil
}

// Unsubscribe removes a previously registered subscriber of docType/docID.
func (e *Engine) Unsubscribe(docType, docID string, subID int) {
	e.mu.Lock()
	inst, ok := e.instances[docKey{docType: docType, docID: docID}]
	e.mu.Unlock()
	if ok {
		inst.Unsubscribe(subID)
	}
}

// Touch restores docType/docID if necessary and marks it active, without
// submitting anything. State and Subscribe do not call it.
func (e *Engine) Touch(docType, docID string) error {
	inst, err := e.GetOrRestore(docType, docID)
	if err != nil {
		return err
	}
	inst.Touch()
	return nil
}

// State returns the current {state, version} pair for docType/docID.
func (e *Engine) State(docType, docID string) (value.Value, uint64, error) {
	inst, err := e.GetOrRestore(docType, docID)
	if err != nil {
		return value.Value{}, 0, err
	}
	state, version := inst.CurrentState()
	return state, version, nil
}

// StartIdleEviction launches the background scan that snapshots and drops
// instances idle for at least e.cfg.MaxIdleTime. Call Stop to end it.
func (e *Engine) StartIdleEviction(scanInterval time.Duration) {
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.idleEvictionLoop(scanInterval)
}

// Stop ends the idle-eviction loop started by StartIdleEviction and waits
// for it to exit.
func (e *Engine) Stop() {
	if e.stop == nil {
		return
	}
	close(e.stop)
	<-e.done
}

func (e *Engine) idleEvictionLoop(scanInterval time.Duration) {
	defer close(e.done)
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.evictIdle()
		}
	}
}

func (e *Engine) evictIdle() {
	now := int64(0)
	if e.clock != nil {
		now = e.clock()
	}
	maxIdleMillis := e.cfg.MaxIdleTime.Milliseconds()

	e.mu.Lock()
	var toEvict []docKey
	for key, inst := range e.instances {
		if now-inst.LastActivity() >= maxIdleMillis {
			toEvict = append(toEvict, key)
		}
	}
	e.mu.Unlock()

	for _, key := range toEvict {
		e.mu.Lock()
		inst, ok := e.instances[key]
		e.mu.Unlock()
		if !ok {
			continue
		}

		if err := inst.SaveSnapshot(); err != nil {
			log.Logger.Error().Str("doc_id", key.docID).Err(err).Msg("best-effort snapshot before eviction failed")
		}

		e.mu.Lock()
		delete(e.instances, key)
		count := len(e.instances)
		e.mu.Unlock()

		e.metrics.InstanceEvicted(key.docID)
		e.metrics.ActiveInstances(count)
	}
}

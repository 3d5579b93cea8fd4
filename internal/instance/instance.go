// Package instance implements DocumentInstance: the live, in-memory owner
// of one document's authoritative state, WAL, and snapshot policy. Restore
// rebuilds it from cold+hot storage; Submit is the two-phase commit path
// (validate, WAL-append, apply) that ServerDocument's own Submit
// convenience deliberately does not provide.
package instance

import (
	"sync"

	"github.com/collabdoc/engine/internal/coldstore"
	"github.com/collabdoc/engine/internal/config"
	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/document"
	"github.com/collabdoc/engine/internal/hotstore"
	"github.com/collabdoc/engine/internal/log"
	"github.com/collabdoc/engine/internal/metrics"
	"github.com/collabdoc/engine/internal/op"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/serverdoc"
	"github.com/collabdoc/engine/internal/value"
)

// Deps bundles an Instance's collaborators so Restore's signature stays
// readable.
type Deps struct {
	Cold          coldstore.Store
	Hot           hotstore.Store
	SchemaVersion uint32
	NewID         document.IDGenerator
	Now           document.Clock
	Metrics       metrics.Collector
}

// Instance is the live owner of one document: its ServerDocument, WAL and
// cold-snapshot stores, snapshot-trigger bookkeeping, and subscriber
// broadcast. All mutating operations run under a single mutex, matching
// spec.md §5's single-writer-per-document model.
type Instance struct {
	docID string
	cfg   config.DocumentTypeConfig
	deps  Deps

	mu          sync.Mutex
	serverDoc   *serverdoc.ServerDocument
	broadcaster *broadcaster

	lastActivity        int64
	lastSnapshotVersion uint64
	lastSnapshotTime    int64
	txSinceSnapshot     int
}

// Restore rebuilds an Instance for docID: load the cold snapshot (or
// compute the configured initial state if none exists), then replay every
// WAL entry since the snapshot's version. A version gap is logged and
// counted, and an entry that fails to replay is logged and skipped;
// neither aborts restore — replay continues with whatever the WAL can
// still offer (spec.md §4.8 step 5).
func Restore(docID string, cfg config.DocumentTypeConfig, deps Deps) (*Instance, error) {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NopCollector{}
	}
	now := deps.Now
	clockNow := int64(0)
	if now != nil {
		clockNow = now()
	}

	stored, err := deps.Cold.Load(docID)
	if err != nil {
		return nil, err
	}

	var baseState value.Value
	var baseVersion uint64
	if stored != nil {
		baseState = stored.State
		baseVersion = stored.Version
	} else {
		initial := value.Null()
		if cfg.Initial != nil {
			initial = cfg.Initial(config.InitialContext{DocID: docID})
		}
		baseState = schema.ApplyDefaults(cfg.Schema, initial)
		baseVersion = 0
	}

	inst := &Instance{
		docID:               docID,
		cfg:                 cfg,
		deps:                deps,
		broadcaster:         newBroadcaster(),
		lastActivity:        clockNow,
		lastSnapshotVersion: baseVersion,
		lastSnapshotTime:    clockNow,
	}

	doc := document.New(cfg.Schema, document.Options{
		State: &baseState,
		NewID: deps.NewID,
		Now:   deps.Now,
	})
	maxHistory := cfg.MaxTransactionHistory
	inst.serverDoc = serverdoc.New(doc, baseVersion, maxHistory, inst.onBroadcast)

	if stored == nil {
		if err := deps.Cold.Save(docID, coldstore.StoredDoc{
			State:         baseState,
			Version:       0,
			SchemaVersion: deps.SchemaVersion,
			SavedAt:       clockNow,
		}); err != nil {
			return nil, err
		}
	}

	entries, err := deps.Hot.GetSince(docID, baseVersion)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Version != inst.serverDoc.CurrentVersion()+1 {
			log.Logger.Warn().Str("doc_id", docID).Uint64("expected", inst.serverDoc.CurrentVersion()+1).Uint64("got", e.Version).Msg("wal replay gap")
			deps.Metrics.WalReplayGap(docID)
		}
		if err := inst.serverDoc.Replay(e.Transaction); err != nil {
			log.Logger.Warn().Str("doc_id", docID).Err(err).Msg("skipping corrupted wal entry during replay")
			continue
		}
	}

	return inst, nil
}

// SubmitOutcome is Submit's result.
type SubmitOutcome struct {
	OK      bool
	Version uint64
	Reason  string
}

// Submit runs the two-phase commit: validate against current state, append
// the entry to the WAL with the version it would produce, then apply it to
// authoritative state. A WAL append failure leaves state untouched — the
// transaction is rejected, never partially applied.
func (i *Instance) Submit(tx op.Transaction) SubmitOutcome {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touchLocked()

	v := i.serverDoc.Validate(tx)
	if !v.Valid {
		i.reject(tx.ID, v.Reason)
		return SubmitOutcome{Reason: v.Reason}
	}

	entry := hotstore.WalEntry{Transaction: tx, Version: v.NextVersion, Timestamp: i.now()}
	if err := i.deps.Hot.AppendChecked(i.docID, entry, v.NextVersion); err != nil {
		reason := "Storage unavailable. Please retry."
		if _, ok := err.(*docerrors.VersionGapError); ok {
			i.deps.Metrics.VersionGapDetected(i.docID)
		}
		i.reject(tx.ID, reason)
		return SubmitOutcome{Reason: reason}
	}

	if err := i.serverDoc.Apply(tx); err != nil {
		i.reject(tx.ID, err.Error())
		return SubmitOutcome{Reason: err.Error()}
	}

	i.deps.Metrics.SubmitCommitted(i.docID)
	i.txSinceSnapshot++
	i.checkSnapshotTriggersLocked()
	return SubmitOutcome{OK: true, Version: i.serverDoc.CurrentVersion()}
}

func (i *Instance) reject(txID, reason string) {
	i.deps.Metrics.SubmitRejected(i.docID, reason)
	i.broadcaster.Publish(Event{Kind: EventRejected, TxID: txID, Reason: reason})
}

func (i *Instance) onBroadcast(tx op.Transaction, version uint64) {
	i.broadcaster.Publish(Event{Kind: EventCommitted, Tx: tx, Version: version})
}

func (i *Instance) now() int64 {
	if i.deps.Now == nil {
		return 0
	}
	return i.deps.Now()
}

func (i *Instance) touchLocked() {
	i.lastActivity = i.now()
}

// checkSnapshotTriggersLocked evaluates the count and time triggers
// (spec.md §4.8's snapshot policy) and saves a snapshot if either fires.
// Callers must already hold mu.
func (i *Instance) checkSnapshotTriggersLocked() {
	triggered := false
	if i.cfg.SnapshotTxThreshold > 0 && i.txSinceSnapshot >= i.cfg.SnapshotTxThreshold {
		triggered = true
	}
	if i.cfg.SnapshotInterval > 0 && i.now()-i.lastSnapshotTime >= i.cfg.SnapshotInterval.Milliseconds() {
		triggered = true
	}
	if triggered {
		if err := i.saveSnapshotLocked(); err != nil {
			log.Logger.Error().Str("doc_id", i.docID).Err(err).Msg("triggered snapshot save failed")
		}
	}
}

// saveSnapshotLocked re-checks the current version against the last saved
// one (defensive: another trigger may have already covered it), writes the
// cold snapshot, and best-effort truncates the WAL up to that version.
// The snapshot is the in-memory authoritative state; it is not rebuilt by
// replaying WAL entries onto the previous cold snapshot.
// Callers must already hold mu.
func (i *Instance) saveSnapshotLocked() error {
	state, version := i.serverDoc.Snapshot()
	if version <= i.lastSnapshotVersion {
		i.txSinceSnapshot = 0
		return nil
	}

	savedAt := i.now()
	if err := i.deps.Cold.Save(i.docID, coldstore.StoredDoc{
		State:         state,
		Version:       version,
		SchemaVersion: i.deps.SchemaVersion,
		SavedAt:       savedAt,
	}); err != nil {
		return err
	}
	i.lastSnapshotVersion = version
	i.lastSnapshotTime = savedAt
	i.txSinceSnapshot = 0
	i.deps.Metrics.SnapshotSaved(i.docID, version)

	if err := i.deps.Hot.TruncateUpto(i.docID, version); err != nil {
		log.Logger.Warn().Str("doc_id", i.docID).Err(err).Msg("wal truncate after snapshot failed, will retry on next snapshot")
	}
	return nil
}

// SaveSnapshot forces an out-of-band snapshot (Engine calls this from the
// idle-eviction path before dropping an instance).
func (i *Instance) SaveSnapshot() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.saveSnapshotLocked()
}

// Touch records activity without submitting anything, so that the
// instance counts as active for idle eviction. Subscribe and CurrentState
// do not call it.
func (i *Instance) Touch() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.touchLocked()
}

// LastActivity returns the clock value of the most recent touch or submit.
func (i *Instance) LastActivity() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastActivity
}

// Version returns the current authoritative version.
func (i *Instance) Version() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.serverDoc.CurrentVersion()
}

// CurrentState returns the current {state, version} pair.
func (i *Instance) CurrentState() (value.Value, uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.serverDoc.Snapshot()
}

// DocID returns the document id this instance owns.
func (i *Instance) DocID() string { return i.docID }

// Subscribe registers a new receiver of commit/reject events for this
// document.
func (i *Instance) Subscribe() (int, <-chan Event) {
	return i.broadcaster.Subscribe()
}

// Unsubscribe removes a previously registered receiver.
func (i *Instance) Unsubscribe(id int) {
	i.broadcaster.Unsubscribe(id)
}

// Package coldstore implements the point-in-time snapshot store: atomic
// load/save/delete of a StoredDoc keyed by document id, grounded on the
// teacher's CheckpointManager atomic temp-file-plus-rename write idiom
// (pkg/storage/checkpoint.go), generalized from a B+Tree snapshot to a
// schema-state snapshot, and compressed with zstd the way the teacher's
// go.mod already pulls in DataDog/zstd for.
package coldstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DataDog/zstd"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/collabdoc/engine/internal/docerrors"
	"github.com/collabdoc/engine/internal/value"
)

// StoredDoc is the cold snapshot wire/at-rest shape.
type StoredDoc struct {
	State         value.Value `bson:"state"`
	Version       uint64      `bson:"version"`
	SchemaVersion uint32      `bson:"schema_version"`
	SavedAt       int64       `bson:"saved_at"`
}

// Store is the ColdStore contract consumed by DocumentInstance.
type Store interface {
	Load(docID string) (*StoredDoc, error)
	Save(docID string, doc StoredDoc) error
	Delete(docID string) error
}

// FileStore persists each document's snapshot as a zstd-compressed BSON
// file, one per doc id, written atomically via a temp file plus rename.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore builds a FileStore rooted at baseDir, creating it if
// necessary.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("coldstore: create base dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) pathFor(docID string) string {
	return filepath.Join(f.baseDir, docID+".snapshot.zst")
}

func (f *FileStore) Load(docID string) (*StoredDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.pathFor(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &docerrors.ColdError{DocID: docID, Op: "load", Cause: docerrors.Wrap(err, "read snapshot file")}
	}
	decompressed, err := zstd.Decompress(nil, raw)
	if err != nil {
		return nil, &docerrors.ColdError{DocID: docID, Op: "load", Cause: docerrors.Wrap(err, "decompress snapshot")}
	}
	var doc StoredDoc
	if err := bson.Unmarshal(decompressed, &doc); err != nil {
		return nil, &docerrors.ColdError{DocID: docID, Op: "load", Cause: docerrors.Wrap(err, "decode snapshot")}
	}
	return &doc, nil
}

func (f *FileStore) Save(docID string, doc StoredDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	encoded, err := bson.Marshal(doc)
	if err != nil {
		return &docerrors.ColdError{DocID: docID, Op: "save", Cause: docerrors.Wrap(err, "encode snapshot")}
	}
	compressed, err := zstd.CompressLevel(nil, encoded, zstd.DefaultCompression)
	if err != nil {
		return &docerrors.ColdError{DocID: docID, Op: "save", Cause: docerrors.Wrap(err, "compress snapshot")}
	}

	target := f.pathFor(docID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return &docerrors.ColdError{DocID: docID, Op: "save", Cause: docerrors.Wrap(err, "write temp snapshot file")}
	}
	if err := os.Rename(tmp, target); err != nil {
		return &docerrors.ColdError{DocID: docID, Op: "save", Cause: docerrors.Wrap(err, "rename temp snapshot file")}
	}
	return nil
}

func (f *FileStore) Delete(docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.pathFor(docID)); err != nil && !os.IsNotExist(err) {
		return &docerrors.ColdError{DocID: docID, Op: "delete", Cause: docerrors.Wrap(err, "remove snapshot file")}
	}
	return nil
}

// Now returns the current time in epoch milliseconds, matching SavedAt's
// wire shape.
func Now() int64 { return time.Now().UnixMilli() }

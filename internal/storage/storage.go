package storage

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned by Load when the stored data cannot be decoded.
// The returned snapshot is empty and usable.
var ErrCorrupt = errors.New("stored data is corrupt")

// ErrUnsafeOverwrite is returned by Save when the file on disk is corrupt
// and no backup of it exists.
var ErrUnsafeOverwrite = errors.New("refusing to overwrite corrupt data")

// ErrReadOnly is returned by Save on a store opened with ReadOnly.
var ErrReadOnly = errors.New("store is read-only")

// TaskRecord is the persisted form of a task. The due date is the key the
// record is stored under.
type TaskRecord struct {
	Task       string `json:"task"`
	Recurrence string `json:"recurrence"`
}

// Snapshot is everything that survives a restart. Reminders are not part
// of it.
type Snapshot struct {
	Tasks map[string][]TaskRecord `json:"tasks"`
	Notes map[string]string       `json:"notes"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Tasks: map[string][]TaskRecord{},
		Notes: map[string]string{},
	}
}

func (s *Snapshot) ensureMaps() {
	if s.Tasks == nil {
		s.Tasks = map[string][]TaskRecord{}
	}
	if s.Notes == nil {
		s.Notes = map[string]string{}
	}
}

// Backend loads and saves whole snapshots.
type Backend interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Close() error
}

// CorruptError carries the location of the quarantined copy of a file
// that failed to decode.
// BackupErr is set when moving the file aside failed.
type CorruptError struct {
	Path      string
	Backup    string
	BackupErr error
	Err       error
}

func (e *CorruptError) Error() string {
	switch {
	case e.Backup != "":
		return fmt.Sprintf("%s: %v (moved to %s)", e.Path, e.Err, e.Backup)
	case e.BackupErr != nil:
		return fmt.Sprintf("%s: %v (backup failed: %v)", e.Path, e.Err, e.BackupErr)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

type peeker interface {
	Peek() (Snapshot, error)
}

type readOnly struct {
	b Backend
}

// ReadOnly wraps b so that Load leaves the stored data untouched, even
// when it is corrupt, and Save fails with ErrReadOnly.
func ReadOnly(b Backend) Backend {
	return readOnly{b: b}
}

func (r readOnly) Load() (Snapshot, error) {
	if p, ok := r.b.(peeker); ok {
		return p.Peek()
	}
	return r.b.Load()
}

func (r readOnly) Save(Snapshot) error { return ErrReadOnly }

func (r readOnly) Close() error { return r.b.Close() }

// Open returns the backend named by kind ("json" or "sqlite").
func Open(kind, dataPath, dbPath string) (Backend, error) {
	switch kind {
	case "", "json":
		return NewJSONStore(dataPath)
	case "sqlite":
		return OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const snapshotSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"tasks": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["task"],
					"properties": {
						"task": {"type": "string"},
						"recurrence": {"type": "string"}
					}
				}
			}
		},
		"notes": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	}
}`

var snapshotSchema = jsonschema.MustCompileString("snapshot.schema.json", snapshotSchemaJSON)

// JSONStore keeps the snapshot in a single pretty-printed JSON file.
type JSONStore struct {
	path   string
	now    func() time.Time
	rename func(oldpath, newpath string) error

	// set when a corrupt file could not be moved aside; Save refuses to
	// write over it
	unsafe error
}

func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("data path is empty")
	}
	return &JSONStore{path: path, now: time.Now, rename: os.Rename}, nil
}

func (s *JSONStore) Path() string { return s.path }

// Load reads the data file. A missing or blank file yields an empty
// snapshot. A file that is not valid JSON or does not match the snapshot
// schema is moved aside and reported as ErrCorrupt. When the move fails
// the file stays in place and later saves are refused.
func (s *JSONStore) Load() (Snapshot, error) {
	snap, err := s.Peek()
	var cerr *CorruptError
	if !errors.As(err, &cerr) {
		return snap, err
	}
	backup, berr := s.quarantine()
	if berr != nil {
		cerr.BackupErr = berr
		s.unsafe = fmt.Errorf("%w: %s was not backed up: %v", ErrUnsafeOverwrite, s.path, berr)
		return snap, cerr
	}
	cerr.Backup = backup
	s.unsafe = nil
	return snap, cerr
}

// Peek reads the data file like Load but never moves it.
func (s *JSONStore) Peek() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return NewSnapshot(), fmt.Errorf("read data file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewSnapshot(), nil
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return NewSnapshot(), &CorruptError{Path: s.path, Err: err}
	}
	return snap, nil
}

// Save rewrites the whole file with 4-space indentation.
func (s *JSONStore) Save(snap Snapshot) error {
	if s.unsafe != nil {
		return s.unsafe
	}
	snap.ensureMaps()
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal data file: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) quarantine() (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().Format("20060102-150405"))
	if err := s.rename(s.path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("parse data file: %w", err)
	}
	if err := snapshotSchema.Validate(doc); err != nil {
		return Snapshot{}, fmt.Errorf("validate data file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode data file: %w", err)
	}
	snap.ensureMaps()
	return snap, nil
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Tasks: map[string][]TaskRecord{
			"2024-06-01": {
				{Task: "Buy milk", Recurrence: "daily"},
				{Task: "Call mum", Recurrence: "none"},
				{Task: "Water plants", Recurrence: "weekly"},
			},
			"2024-06-03": {
				{Task: "Dentist", Recurrence: "none"},
			},
		},
		Notes: map[string]string{
			"2024-06-01": "Dentist at 3pm",
		},
	}
}

func TestJSONStoreLoad(t *testing.T) {
	t.Run("missing file yields empty snapshot", func(t *testing.T) {
		store, err := NewJSONStore(filepath.Join(t.TempDir(), "tasks.json"))
		if err != nil {
			t.Fatal(err)
		}
		snap, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(snap.Tasks) != 0 || len(snap.Notes) != 0 {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
		if snap.Tasks == nil || snap.Notes == nil {
			t.Error("expected initialized maps")
		}
	})

	t.Run("blank file yields empty snapshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasks.json")
		if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		store, _ := NewJSONStore(path)
		if _, err := store.Load(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("reads file written by older versions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasks.json")
		legacy := `{
    "tasks": {
        "2024-06-01": [
            {"task": "Buy milk", "recurrence": "täglich"}
        ]
    },
    "notes": {}
}`
		if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
			t.Fatal(err)
		}
		store, _ := NewJSONStore(path)
		snap, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := snap.Tasks["2024-06-01"]
		if len(got) != 1 || got[0].Task != "Buy milk" || got[0].Recurrence != "täglich" {
			t.Errorf("unexpected tasks: %+v", got)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"tasks": {`},
		{"task list is not an array", `{"tasks": {"2024-06-01": "Buy milk"}}`},
		{"task without description", `{"tasks": {"2024-06-01": [{"recurrence": "none"}]}}`},
		{"note is not a string", `{"notes": {"2024-06-01": 3}}`},
		{"top level array", `[]`},
	}
	for _, tt := range tests {
		t.Run("corrupt: "+tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			store, _ := NewJSONStore(path)
			store.now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }

			snap, err := store.Load()
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
			if len(snap.Tasks) != 0 || snap.Notes == nil {
				t.Errorf("expected empty usable snapshot, got %+v", snap)
			}

			var cerr *CorruptError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *CorruptError, got %T", err)
			}
			wantBackup := path + ".corrupt-20240601-083000"
			if cerr.Backup != wantBackup {
				t.Errorf("Backup = %q, want %q", cerr.Backup, wantBackup)
			}
			if _, err := os.Stat(wantBackup); err != nil {
				t.Errorf("backup not created: %v", err)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("corrupt file should have been moved, stat err = %v", err)
			}
		})
	}
}

func TestJSONStoreKeepsCorruptFileWhenBackupFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	body := []byte("{not json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	store, _ := NewJSONStore(path)
	store.rename = func(string, string) error { return errors.New("permission denied") }

	_, err := store.Load()
	var cerr *CorruptError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CorruptError, got %v", err)
	}
	if cerr.Backup != "" || cerr.BackupErr == nil {
		t.Errorf("expected backup error, got %+v", cerr)
	}
	if !strings.Contains(err.Error(), "backup failed") {
		t.Errorf("error = %q", err)
	}

	if err := store.Save(sampleSnapshot()); !errors.Is(err, ErrUnsafeOverwrite) {
		t.Fatalf("expected ErrUnsafeOverwrite, got %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Errorf("corrupt file was overwritten: %q", got)
	}
}

func TestReadOnlyLeavesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, _ := NewJSONStore(path)
	ro := ReadOnly(store)

	if _, err := ro.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("data file should stay in place: %v", err)
	}
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 0 {
		t.Errorf("unexpected backups: %v", matches)
	}
	if err := ro.Save(NewSnapshot()); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestReadOnlyLoadsValidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store, _ := NewJSONStore(path)
	if err := store.Save(sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	snap, err := ReadOnly(store).Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snap, sampleSnapshot()) {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tasks.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}

	want := sampleSnapshot()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n    \"notes\": {") {
		t.Errorf("expected 4-space indentation, got:\n%s", data)
	}
}

func TestJSONStoreSaveEmptyWritesObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store, _ := NewJSONStore(path)
	if err := store.Save(Snapshot{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("expected empty objects instead of null:\n%s", data)
	}
}

func TestJSONStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file makes the write fail.
	path := filepath.Join(dir, "tasks.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	store, _ := NewJSONStore(path)
	if err := store.Save(sampleSnapshot()); err == nil {
		t.Fatal("expected write error, got nil")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "dayhelper.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Tasks) != 0 || len(empty.Notes) != 0 {
		t.Errorf("expected empty snapshot, got %+v", empty)
	}

	want := sampleSnapshot()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	// A second save replaces rather than appends.
	next := NewSnapshot()
	next.Notes["2024-06-02"] = "Quiet day"
	if err := store.Save(next); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, next) {
		t.Errorf("after replace got %+v, want %+v", got, next)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open("json", filepath.Join(dir, "tasks.json"), "")
	if err != nil {
		t.Fatalf("json backend: %v", err)
	}
	if _, ok := b.(*JSONStore); !ok {
		t.Errorf("expected *JSONStore, got %T", b)
	}

	b, err = Open("sqlite", "", filepath.Join(dir, "dayhelper.db"))
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer b.Close()
	if _, ok := b.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", b)
	}

	if _, err := Open("postgres", "", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

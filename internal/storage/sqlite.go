package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the snapshot in two tables. Save replaces their
// contents in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	day TEXT NOT NULL,
	position INTEGER NOT NULL,
	description TEXT NOT NULL,
	recurrence TEXT NOT NULL DEFAULT 'none',
	PRIMARY KEY (day, position)
);
CREATE TABLE IF NOT EXISTS notes (
	day TEXT PRIMARY KEY,
	body TEXT NOT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLiteStore) Load() (Snapshot, error) {
	snap := NewSnapshot()

	rows, err := s.db.Query(`SELECT day, description, recurrence FROM tasks ORDER BY day, position;`)
	if err != nil {
		return snap, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var rec TaskRecord
		if err := rows.Scan(&day, &rec.Task, &rec.Recurrence); err != nil {
			return NewSnapshot(), &CorruptError{Path: "tasks", Err: err}
		}
		snap.Tasks[day] = append(snap.Tasks[day], rec)
	}
	if err := rows.Err(); err != nil {
		return NewSnapshot(), fmt.Errorf("read tasks: %w", err)
	}

	noteRows, err := s.db.Query(`SELECT day, body FROM notes;`)
	if err != nil {
		return NewSnapshot(), fmt.Errorf("query notes: %w", err)
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var day, body string
		if err := noteRows.Scan(&day, &body); err != nil {
			return NewSnapshot(), &CorruptError{Path: "notes", Err: err}
		}
		snap.Notes[day] = body
	}
	if err := noteRows.Err(); err != nil {
		return NewSnapshot(), fmt.Errorf("read notes: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Save(snap Snapshot) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM tasks;`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if _, err = tx.Exec(`DELETE FROM notes;`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}

	for day, records := range snap.Tasks {
		for i, rec := range records {
			if _, err = tx.Exec(`INSERT INTO tasks (day, position, description, recurrence) VALUES (?, ?, ?, ?);`,
				day, i, rec.Task, rec.Recurrence); err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
		}
	}
	for day, body := range snap.Notes {
		if _, err = tx.Exec(`INSERT INTO notes (day, body) VALUES (?, ?);`, day, body); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

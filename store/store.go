// Package store persists environment programs in SQLite.
//
// Programs are stored by name with their source and a content digest, so a
// host can keep its script set across restarts and replay it into a fresh
// Environment on startup.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/cflat/interp"
)

// ErrProgramNotFound indicates the requested program is not stored.
var ErrProgramNotFound = errors.New("program not found")

// ProgramStore is a SQLite-backed program registry.
type ProgramStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) a program store at the given path.
func Open(path string) (*ProgramStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		name TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		digest TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &ProgramStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *ProgramStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *ProgramStore) Path() string {
	return s.path
}

func digestOf(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Put stores or replaces a program source.
func (s *ProgramStore) Put(name, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO programs (name, source, digest, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET
		   source = excluded.source,
		   digest = excluded.digest,
		   updated_at = excluded.updated_at`,
		name, source, digestOf(source))
	if err != nil {
		return fmt.Errorf("storing program %q: %w", name, err)
	}
	return nil
}

// Get returns a stored program source, verifying its digest.
func (s *ProgramStore) Get(name string) (string, error) {
	var source, digest string
	err := s.db.QueryRow(
		"SELECT source, digest FROM programs WHERE name = ?", name).
		Scan(&source, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading program %q: %w", name, err)
	}
	if digestOf(source) != digest {
		return "", fmt.Errorf("program %q: stored digest mismatch", name)
	}
	return source, nil
}

// List returns the stored program names in insertion order.
func (s *ProgramStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM programs ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning program name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a stored program.
func (s *ProgramStore) Delete(name string) error {
	result, err := s.db.Exec("DELETE FROM programs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting program %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProgramNotFound
	}
	return nil
}

// SaveAll stores every program currently loaded in the environment.
func (s *ProgramStore) SaveAll(env *interp.Environment) error {
	for _, name := range env.ProgramNames() {
		program := env.GetProgram(name)
		if program == nil {
			continue
		}
		if err := s.Put(program.Name, program.Code); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll replays every stored program into the environment, in insertion
// order. The first program that fails to load aborts the replay.
func (s *ProgramStore) LoadAll(env *interp.Environment) error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		source, err := s.Get(name)
		if err != nil {
			return err
		}
		if !env.Load(name, source) {
			return fmt.Errorf("loading program %q: %s", name, env.ErrorMessage())
		}
	}
	return nil
}

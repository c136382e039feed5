// Package history persists monitoring runs and their steps in SQLite so a
// run can be listed, inspected and plotted after the fact.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	config_hash  TEXT,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	run_id           TEXT NOT NULL,
	step_index       INTEGER NOT NULL,
	recorded_at      TEXT NOT NULL,
	evidence_json    TEXT NOT NULL,
	raw              REAL NOT NULL,
	probability      REAL NOT NULL,
	label            TEXT NOT NULL,
	memberships_json TEXT NOT NULL,
	alarm            INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, step_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("history: run not found")

// Run is one monitoring session.
type Run struct {
	ID         string    `json:"run_id"`
	Source     string    `json:"source"`
	ConfigHash string    `json:"config_hash,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// RunSummary is a run with its recorded step statistics.
type RunSummary struct {
	Run
	Steps          int     `json:"steps"`
	Alarms         int     `json:"alarms"`
	MaxProbability float64 `json:"max_probability"`
}

// StepRecord is one persisted monitoring step.
type StepRecord struct {
	RunID       string             `json:"run_id"`
	Index       int                `json:"step"`
	At          time.Time          `json:"ts"`
	Evidence    map[string]string  `json:"evidence"`
	Raw         float64            `json:"raw"`
	Probability float64            `json:"probability"`
	Label       string             `json:"label"`
	Memberships map[string]float64 `json:"memberships"`
	Alarm       bool               `json:"alarm,omitempty"`
}

// Store manages run history in SQLite.
type Store struct {
	db *sql.DB
}

// DefaultPath returns ~/.hazardwatch/history.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hazardwatch", "history.db")
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun registers a new run with a fresh UUID.
func (s *Store) CreateRun(source, configHash string) (Run, error) {
	run := Run{
		ID:         uuid.New().String(),
		Source:     source,
		ConfigHash: configHash,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, source, config_hash, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.ConfigHash, run.StartedAt.Format(timeFormat),
	)
	if err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}
	return run, nil
}

// RecordStep appends a step to its run. Re-recording an index is an error.
func (s *Store) RecordStep(rec StepRecord) error {
	evJSON, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("history: marshal evidence: %w", err)
	}
	memJSON, err := json.Marshal(rec.Memberships)
	if err != nil {
		return fmt.Errorf("history: marshal memberships: %w", err)
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.Exec(
		`INSERT INTO steps (run_id, step_index, recorded_at, evidence_json, raw, probability, label, memberships_json, alarm)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Index, at.UTC().Format(timeFormat), string(evJSON),
		rec.Raw, rec.Probability, rec.Label, string(memJSON), boolToInt(rec.Alarm),
	)
	if err != nil {
		return fmt.Errorf("history: insert step %d of %s: %w", rec.Index, rec.RunID, err)
	}
	return nil
}

// Run returns one run by ID.
func (s *Store) Run(runID string) (Run, error) {
	row := s.db.QueryRow(`SELECT run_id, source, COALESCE(config_hash, ''), started_at FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun() (Run, error) {
	row := s.db.QueryRow(`SELECT run_id, source, COALESCE(config_hash, ''), started_at FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// Runs lists all runs, newest first, with their step statistics.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT r.run_id, r.source, COALESCE(r.config_hash, ''), r.started_at,
		       COUNT(st.step_index), COALESCE(SUM(st.alarm), 0), COALESCE(MAX(st.probability), 0)
		FROM runs r LEFT JOIN steps st ON st.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started string
		if err := rows.Scan(&rs.ID, &rs.Source, &rs.ConfigHash, &started, &rs.Steps, &rs.Alarms, &rs.MaxProbability); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		rs.StartedAt, err = time.Parse(timeFormat, started)
		if err != nil {
			return nil, fmt.Errorf("history: parse started_at: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Steps returns a run's steps in index order.
func (s *Store) Steps(runID string) ([]StepRecord, error) {
	if _, err := s.Run(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT run_id, step_index, recorded_at, evidence_json, raw, probability, label, memberships_json, alarm
		FROM steps WHERE run_id = ? ORDER BY step_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var rec StepRecord
		var at, evJSON, memJSON string
		var alarm int
		if err := rows.Scan(&rec.RunID, &rec.Index, &at, &evJSON, &rec.Raw, &rec.Probability, &rec.Label, &memJSON, &alarm); err != nil {
			return nil, fmt.Errorf("history: scan step: %w", err)
		}
		if rec.At, err = time.Parse(timeFormat, at); err != nil {
			return nil, fmt.Errorf("history: parse recorded_at: %w", err)
		}
		if err := json.Unmarshal([]byte(evJSON), &rec.Evidence); err != nil {
			return nil, fmt.Errorf("history: unmarshal evidence: %w", err)
		}
		if err := json.Unmarshal([]byte(memJSON), &rec.Memberships); err != nil {
			return nil, fmt.Errorf("history: unmarshal memberships: %w", err)
		}
		rec.Alarm = alarm != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LabelCounts tallies a run's steps by decision label.
func (s *Store) LabelCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT label, COUNT(*) FROM steps WHERE run_id = ? GROUP BY label`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: query labels: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("history: scan label: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func scanRun(row *sql.Row) (Run, error) {
	var run Run
	var started string
	if err := row.Scan(&run.ID, &run.Source, &run.ConfigHash, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("history: scan run: %w", err)
	}
	t, err := time.Parse(timeFormat, started)
	if err != nil {
		return Run{}, fmt.Errorf("history: parse started_at: %w", err)
	}
	run.StartedAt = t
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

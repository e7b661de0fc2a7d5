package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/mark-extract/internal/extract"
	"github.com/ironsheep/mark-extract/internal/geom"
	"github.com/ironsheep/mark-extract/internal/month"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	sources    TEXT NOT NULL,
	summary    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	page        INTEGER NOT NULL,
	mark_id     INTEGER NOT NULL,
	mark_kind   TEXT NOT NULL,
	note_number TEXT,
	item_number TEXT,
	month       TEXT,
	x           INTEGER NOT NULL,
	y           INTEGER NOT NULL,
	partner_id  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`

// Run is one extraction batch.
type Run struct {
	ID        int64           `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Sources   []string        `json:"sources"`
	Summary   extract.Summary `json:"summary"`
}

// DB is the run-history database.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the SQLite database at path and ensures the schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// SaveRun stores run and its records in one transaction and returns the new
// run ID.
func (db *DB) SaveRun(ctx context.Context, run Run, records []extract.Record) (int64, error) {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return 0, err
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return 0, err
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO runs (started_at, sources, summary) VALUES (?, ?, ?)",
		run.StartedAt.UTC().Format(time.RFC3339Nano), string(sources), string(summary))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(run_id, page, mark_id, mark_kind, note_number, item_number, month, x, y, partner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var m sql.NullString
		if r.Month.Resolved {
			m = sql.NullString{String: r.Month.Value.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, r.Page, r.MarkID, string(r.Kind),
			nullable(r.Note), nullable(r.Item), m, r.Position.X, r.Position.Y, r.PartnerID); err != nil {
			return 0, fmt.Errorf("failed to insert record for mark %d on page %d: %w", r.MarkID, r.Page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

func nullable(f extract.Field[string]) sql.NullString {
	return sql.NullString{String: f.Value, Valid: f.Resolved}
}

// Run loads one run.
func (db *DB) Run(ctx context.Context, id int64) (Run, error) {
	row := db.QueryRowContext(ctx, "SELECT id, started_at, sources, summary FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return run, err
}

// Runs lists all runs, newest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, started_at, sources, summary FROM runs ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run              Run
		started          string
		sources, summary string
	)
	if err := s.Scan(&run.ID, &started, &sources, &summary); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("run %d has bad timestamp %q: %w", run.ID, started, err)
	}
	run.StartedAt = t
	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return Run{}, fmt.Errorf("run %d has bad sources: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("run %d has bad summary: %w", run.ID, err)
	}
	return run, nil
}

// Records returns the records of a run in the order they were saved.
func (db *DB) Records(ctx context.Context, runID int64) ([]extract.Record, error) {
	if _, err := db.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT page, mark_id, mark_kind, note_number, item_number, month, x, y, partner_id
		FROM records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []extract.Record
	for rows.Next() {
		var (
			r          extract.Record
			kind       string
			note, item sql.NullString
			m          sql.NullString
			x, y       int
		)
		if err := rows.Scan(&r.Page, &r.MarkID, &kind, &note, &item, &m, &x, &y, &r.PartnerID); err != nil {
			return nil, err
		}
		r.Kind = extract.MarkKind(kind)
		r.Position = geom.Point{X: x, Y: y}
		if note.Valid {
			r.Note = extract.Resolve(note.String)
		}
		if item.Valid {
			r.Item = extract.Resolve(item.String)
		}
		if m.Valid {
			c, err := month.ParseYearMonth(m.String)
			if err != nil {
				return nil, fmt.Errorf("record for mark %d has bad month %q: %w", r.MarkID, m.String, err)
			}
			r.Month = extract.Resolve(c)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Package history keeps a SQLite log of finished, failed and cancelled runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"anime-dubber/models"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	source TEXT NOT NULL,
	output TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL,
	progress INTEGER NOT NULL,
	error TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_job_id ON runs (job_id);`

// Entry is one recorded run outcome.
type Entry struct {
	ID         int64
	JobID      string
	Source     string
	Output     string
	Mode       models.Mode
	Status     models.JobStatus
	Stage      models.Stage
	Progress   int
	Error      string
	RecordedAt time.Time
}

// Store is a run log backed by a SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database at path if needed. ":memory:" opens a private
// in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordJob appends the job's current outcome. A resumed job gets one row per
// run.
func (s *Store) RecordJob(ctx context.Context, job *models.Job) error {
	errText := ""
	if job.Error != nil {
		errText = job.Error.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (job_id, source, output, mode, status, stage, progress, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourcePath, job.OutputPath(), string(job.Mode), string(job.Status),
		string(job.CurrentStage), job.Progress, errText, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, job_id, source, output, mode, status, stage, progress, error, recorded_at
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForJob returns the runs of one job, oldest first.
func (s *Store) ForJob(ctx context.Context, jobID string) ([]Entry, error) {
	return s.query(ctx, `SELECT id, job_id, source, output, mode, status, stage, progress, error, recorded_at
		FROM runs WHERE job_id = ? ORDER BY id`, jobID)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var mode, status, stage, recorded string
		if err := rows.Scan(&e.ID, &e.JobID, &e.Source, &e.Output, &mode, &status, &stage, &e.Progress, &e.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Mode = models.Mode(mode)
		e.Status = models.JobStatus(status)
		e.Stage = models.Stage(stage)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Package runstore persists run history and results in SQLite so finished
// and interrupted runs survive the process. A file lock keeps concurrent
// miosub processes from writing the same database.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"miosub/internal/config"
	"miosub/internal/glossary"
	"miosub/internal/pipeline"
	"miosub/internal/subtitle"
)

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one persisted run row.
type Run struct {
	ID              string
	MediaPath       string
	Status          pipeline.Status
	ChunksTotal     int
	ChunksCompleted int
	Message         string
	Error           string
	Segments        []subtitle.Segment
	Glossary        []glossary.Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the run database under the work directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "runs.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run database lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another miosub process holds the run database")
	}

	dbPath := filepath.Join(cfg.Paths.WorkDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the process lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// RecordStart inserts a new run row in preparing state.
func (s *Store) RecordStart(ctx context.Context, runID, mediaPath string, totalChunks int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx, `
		INSERT INTO runs (id, media_path, status, chunks_total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, mediaPath, string(pipeline.StatusPreparing), totalChunks, now, now)
}

// RecordStatus updates a run's lifecycle state and progress counters.
func (s *Store) RecordStatus(ctx context.Context, runID string, status pipeline.Status, completed, total int, message string) error {
	return s.execWithRetry(ctx, `
		UPDATE runs SET status = ?, chunks_completed = ?, chunks_total = ?, message = ?, updated_at = ?
		WHERE id = ?`,
		string(status), completed, total, message, time.Now().UTC().Format(time.RFC3339Nano), runID)
}

// RecordResult stores a run's terminal state, including the segments of
// cancelled and failed runs.
func (s *Store) RecordResult(ctx context.Context, runID string, result *pipeline.Result) error {
	segmentsJSON, err := json.Marshal(result.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	glossaryJSON, err := json.Marshal(result.Glossary)
	if err != nil {
		return fmt.Errorf("encode glossary: %w", err)
	}
	return s.execWithRetry(ctx, `
		UPDATE runs SET status = ?, chunks_completed = ?, chunks_total = ?, error = ?,
			segments_json = ?, glossary_json = ?, updated_at = ?
		WHERE id = ?`,
		string(result.Status), result.ChunksCompleted, result.ChunksTotal, result.Err,
		string(segmentsJSON), string(glossaryJSON),
		time.Now().UTC().Format(time.RFC3339Nano), runID)
}

// List returns runs newest first, up to limit. A non-positive limit returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, media_path, status, chunks_total, chunks_completed, message, error,
			segments_json, glossary_json, created_at, updated_at
		FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, media_path, status, chunks_total, chunks_completed, message, error,
			segments_json, glossary_json, created_at, updated_at
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Clear removes every run row and returns the number removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM runs")
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	return affected, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run          Run
		status       string
		segmentsJSON string
		glossaryJSON string
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&run.ID, &run.MediaPath, &status, &run.ChunksTotal, &run.ChunksCompleted,
		&run.Message, &run.Error, &segmentsJSON, &glossaryJSON, &createdAt, &updatedAt)
	if err != nil {
		return Run{}, err
	}
	run.Status = pipeline.Status(status)
	if segmentsJSON != "" && segmentsJSON != "[]" {
		if err := json.Unmarshal([]byte(segmentsJSON), &run.Segments); err != nil {
			return Run{}, fmt.Errorf("decode segments for run %s: %w", run.ID, err)
		}
	}
	if glossaryJSON != "" && glossaryJSON != "[]" {
		if err := json.Unmarshal([]byte(glossaryJSON), &run.Glossary); err != nil {
			return Run{}, fmt.Errorf("decode glossary for run %s: %w", run.ID, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		run.UpdatedAt = t
	}
	return run, nil
}

// Package sessions persists per-job transfer history in SQLite so status
// survives restarts and the CLI can report on past and running uploads.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelsync/internal/config"
	"reelsync/internal/services"
)

// Record is one job's persisted transfer state.
type Record struct {
	JobID            string
	SourcePath       string
	MediaKind        string
	Status           string
	TotalSegments    int
	UploadedSegments int
	SkippedSegments  int
	BytesSent        int64
	Message          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the sessions database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
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
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a job entering the pipeline. Re-running a job id overwrites
// its previous row; history is per id, not per attempt.
func (s *Store) Begin(ctx context.Context, jobID, sourcePath, mediaKind, status string) (*Record, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_sessions (
            job_id, source_path, media_kind, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(job_id) DO UPDATE SET
            source_path = excluded.source_path,
            media_kind = excluded.media_kind,
            status = excluded.status,
            total_segments = 0,
            uploaded_segments = 0,
            skipped_segments = 0,
            bytes_sent = 0,
            message = NULL,
            updated_at = excluded.updated_at,
            completed_at = NULL`,
		jobID, sourcePath, mediaKind, status, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.Get(ctx, jobID)
}

// UpdateProgress refreshes a running job's counters and stage.
func (s *Store) UpdateProgress(ctx context.Context, jobID, status string, total, uploaded, skipped int, bytesSent int64, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE upload_sessions SET
            status = ?, total_segments = ?, uploaded_segments = ?,
            skipped_segments = ?, bytes_sent = ?, message = ?, updated_at = ?
        WHERE job_id = ?`,
		status, total, uploaded, skipped, bytesSent, nullableString(message), now, jobID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Finish marks a job terminal with its closing status and message.
func (s *Store) Finish(ctx context.Context, jobID, status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE upload_sessions SET
            status = ?, message = ?, updated_at = ?, completed_at = ?
        WHERE job_id = ?`,
		status, nullableString(message), now, now, jobID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// Get fetches one session by job id.
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM upload_sessions WHERE job_id = ?`, jobID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "sessions", "get", jobID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM upload_sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

const selectColumns = `SELECT job_id, source_path, media_kind, status,
    total_segments, uploaded_segments, skipped_segments, bytes_sent,
    message, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record      Record
		message     sql.NullString
		createdAt   string
		updatedAt   string
		completedAt sql.NullString
	)
	err := row.Scan(
		&record.JobID, &record.SourcePath, &record.MediaKind, &record.Status,
		&record.TotalSegments, &record.UploadedSegments, &record.SkippedSegments,
		&record.BytesSent, &message, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Message = message.String
	record.CreatedAt = parseTimestamp(createdAt)
	record.UpdatedAt = parseTimestamp(updatedAt)
	if completedAt.Valid {
		t := parseTimestamp(completedAt.String)
		record.CompletedAt = &t
	}
	return &record, nil
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

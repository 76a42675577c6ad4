package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"autocut/internal/timeline"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database in dir and applies
// migrations.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "jobs.db")
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

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new job record. The job must carry an id, source
// file, and settings; status defaults to uploading.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job id is required")
	}
	if job.Status == "" {
		job.Status = StatusUploading
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	settingsJSON, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, created_at, updated_at, source_filename, source_path,
            settings_json, status, progress, message, error_reason,
            started_at, finished_at, log_path, report_json, result_paths_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		job.SourceFilename,
		job.SourcePath,
		string(settingsJSON),
		job.Status,
		job.Progress,
		nullableString(job.Message),
		nullableString(job.ErrorReason),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableString(job.LogPath),
		nil,
		nil,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier; nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job. Status transitions are
// validated against the DAG; an illegal edge is a programmer error
// surfaced as ErrIllegalTransition.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	current, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("job %s not found", job.ID)
	}
	if current.Status != job.Status && !CanTransition(current.Status, job.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, job.Status)
	}
	if job.Progress < current.Progress {
		job.Progress = current.Progress
	}

	job.UpdatedAt = time.Now().UTC()
	settingsJSON, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var reportJSON any
	if job.Report != nil {
		data, err := json.Marshal(job.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportJSON = string(data)
	}
	var resultsJSON any
	if job.Results != (ResultPaths{}) {
		data, err := json.Marshal(job.Results)
		if err != nil {
			return fmt.Errorf("marshal result paths: %w", err)
		}
		resultsJSON = string(data)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET updated_at = ?, source_filename = ?, source_path = ?, settings_json = ?,
             status = ?, progress = ?, message = ?, error_reason = ?,
             started_at = ?, finished_at = ?, log_path = ?, report_json = ?, result_paths_json = ?
         WHERE id = ?`,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.SourceFilename,
		job.SourcePath,
		string(settingsJSON),
		job.Status,
		job.Progress,
		nullableString(job.Message),
		nullableString(job.ErrorReason),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableString(job.LogPath),
		reportJSON,
		resultsJSON,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status
// is provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// FailInterrupted marks every non-terminal job failed with the
// interrupted reason. Called once at daemon startup; in-flight work
// does not survive a restart.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_reason = ?, message = ?, finished_at = ?, updated_at = ?
         WHERE status IN (?, ?, ?, ?)`,
		StatusFailed,
		InterruptedReason,
		InterruptedReason,
		now,
		now,
		StatusUploading,
		StatusUploaded,
		StatusAnalyzing,
		StatusExporting,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ErrIllegalTransition marks a status edge outside the DAG. Always a
// programmer error.
var ErrIllegalTransition = errors.New("illegal status transition")

const jobColumns = "id, created_at, updated_at, source_filename, source_path, settings_json, status, progress, message, error_reason, started_at, finished_at, log_path, report_json, result_paths_json"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		createdRaw   string
		updatedRaw   string
		filename     string
		sourcePath   string
		settingsRaw  string
		statusStr    string
		progress     float64
		message      sql.NullString
		errorReason  sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		logPath      sql.NullString
		reportRaw    sql.NullString
		resultsRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&createdRaw,
		&updatedRaw,
		&filename,
		&sourcePath,
		&settingsRaw,
		&statusStr,
		&progress,
		&message,
		&errorReason,
		&startedRaw,
		&finishedRaw,
		&logPath,
		&reportRaw,
		&resultsRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		SourceFilename: filename,
		SourcePath:     sourcePath,
		Status:         Status(statusStr),
		Progress:       progress,
		Message:        scanNullable(message),
		ErrorReason:    scanNullable(errorReason),
		LogPath:        scanNullable(logPath),
	}
	if err := json.Unmarshal([]byte(settingsRaw), &job.Settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if reportRaw.Valid && reportRaw.String != "" {
		var report timeline.AnalysisReport
		if err := json.Unmarshal([]byte(reportRaw.String), &report); err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}
		job.Report = &report
	}
	if resultsRaw.Valid && resultsRaw.String != "" {
		if err := json.Unmarshal([]byte(resultsRaw.String), &job.Results); err != nil {
			return nil, fmt.Errorf("parse result paths: %w", err)
		}
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, startedRaw.String); err == nil {
			job.StartedAt = &ts
		}
	}
	if finishedRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			job.FinishedAt = &ts
		}
	}
	return job, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

const (
	upsertJob = `
INSERT INTO jobs (
    id, video_url, video_id, template_id, mode, fingerprint, priority,
    status, retry_count, notes, error, method, token_total, cost_cents,
    processing_ms, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    retry_count = excluded.retry_count,
    notes = excluded.notes,
    error = excluded.error,
    method = excluded.method,
    token_total = excluded.token_total,
    cost_cents = excluded.cost_cents,
    processing_ms = excluded.processing_ms,
    updated_at = excluded.updated_at`

	jobColumns = `
SELECT id, video_url, video_id, template_id, mode, fingerprint, priority,
       status, retry_count, notes, error, method, token_total, cost_cents,
       processing_ms, created_at, updated_at
FROM jobs`

	selectJob = jobColumns + ` WHERE id = ?`

	selectJobByFingerprint = jobColumns + `
WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1`
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

func (r *Repository) Save(ctx context.Context, job *models.Job) error {
	const op = "SQLiteRepository.Save"

	for i := 0; i < 3; i++ { // Simple retry logic
		err := r.save(ctx, job)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return errors.Internal(op, err, "Failed to save job")
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return errors.Internal(op, nil, "Failed after retries")
}

func (r *Repository) save(ctx context.Context, job *models.Job) error {
	_, err := r.db.ExecContext(ctx, upsertJob,
		job.ID,
		job.VideoURL,
		job.VideoID,
		job.TemplateID,
		string(job.Mode),
		job.Fingerprint,
		int(job.Priority),
		string(job.Status),
		job.RetryCount,
		job.Notes,
		job.Error,
		string(job.Method),
		job.TokenTotal,
		job.CostCents,
		job.ProcessingTimeMs,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (r *Repository) Find(ctx context.Context, id string) (*models.Job, error) {
	const op = "SQLiteRepository.Find"
	return scanJob(op, r.db.QueryRowContext(ctx, selectJob, id))
}

// FindByFingerprint returns the newest job for a request fingerprint.
func (r *Repository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Job, error) {
	const op = "SQLiteRepository.FindByFingerprint"
	return scanJob(op, r.db.QueryRowContext(ctx, selectJobByFingerprint, fingerprint))
}

func scanJob(op string, row *sql.Row) (*models.Job, error) {
	job := &models.Job{}
	var mode, status, method string
	var priority int

	err := row.Scan(
		&job.ID,
		&job.VideoURL,
		&job.VideoID,
		&job.TemplateID,
		&mode,
		&job.Fingerprint,
		&priority,
		&status,
		&job.RetryCount,
		&job.Notes,
		&job.Error,
		&method,
		&job.TokenTotal,
		&job.CostCents,
		&job.ProcessingTimeMs,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, err, "Job not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load job")
	}

	job.Mode = models.ProcessingMode(mode)
	job.Status = models.Status(status)
	job.Method = models.ProcessingMethod(method)
	job.Priority = models.Priority(priority)

	return job, nil
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

package repository

import (
	"context"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

type JobRepository interface {
	Save(ctx context.Context, job *models.Job) error
	Find(ctx context.Context, id string) (*models.Job, error)
	// FindByFingerprint returns the most recent job for a request
	// fingerprint, used for duplicate checks before enqueueing.
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.Job, error)
}

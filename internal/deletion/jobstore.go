package deletion

import (
	"context"

	"sapphire/pkg/domain"
)

// JobStore persists deletion jobs. At most one job exists per user; the job
// survives process restarts so an interrupted pipeline can resume.
type JobStore interface {
	// Get returns the user's job or sentinel.ErrNotFound.
	Get(ctx context.Context, userID domain.UserID) (Job, error)
	// Create persists a new job. Returns sentinel.ErrConflict if one exists.
	Create(ctx context.Context, job Job) error
	// MarkStep records a durably completed step.
	MarkStep(ctx context.Context, userID domain.UserID, step StepID) error
	// SetStatus transitions the job's lifecycle state.
	SetStatus(ctx context.Context, userID domain.UserID, status Status) error
}

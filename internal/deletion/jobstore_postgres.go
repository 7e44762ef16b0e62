package deletion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sapphire/pkg/domain"
	"sapphire/pkg/platform/sentinel"
)

// PostgresJobStore persists deletion jobs.
//
// Schema:
//
//	CREATE TABLE deletion_jobs (
//	    user_id         UUID PRIMARY KEY,
//	    started_at      TIMESTAMPTZ NOT NULL,
//	    soft_delete     BOOLEAN NOT NULL,
//	    completed_steps JSONB NOT NULL DEFAULT '[]',
//	    status          TEXT NOT NULL
//	);
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) Get(ctx context.Context, userID domain.UserID) (Job, error) {
	query := `
		SELECT started_at, soft_delete, completed_steps, status
		FROM deletion_jobs WHERE user_id = $1
	`
	job := Job{UserID: userID, CompletedSteps: make(map[StepID]bool)}
	var steps []byte
	var status string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&job.StartedAt, &job.SoftDelete, &steps, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get deletion job: %w", err)
	}

	var completed []StepID
	if err := json.Unmarshal(steps, &completed); err != nil {
		return Job{}, fmt.Errorf("decode completed steps: %w", err)
	}
	for _, step := range completed {
		job.CompletedSteps[step] = true
	}
	job.Status = Status(status)
	return job, nil
}

func (s *PostgresJobStore) Create(ctx context.Context, job Job) error {
	steps, err := json.Marshal(stepList(job.CompletedSteps))
	if err != nil {
		return fmt.Errorf("encode completed steps: %w", err)
	}
	query := `
		INSERT INTO deletion_jobs (user_id, started_at, soft_delete, completed_steps, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(job.UserID), job.StartedAt, job.SoftDelete, steps, string(job.Status))
	if err != nil {
		return fmt.Errorf("create deletion job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresJobStore) MarkStep(ctx context.Context, userID domain.UserID, step StepID) error {
	query := `
		UPDATE deletion_jobs
		SET completed_steps = completed_steps || to_jsonb(ARRAY[$2::text])
		WHERE user_id = $1 AND NOT completed_steps @> to_jsonb(ARRAY[$2::text])
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), string(step)); err != nil {
		return fmt.Errorf("mark deletion step: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) SetStatus(ctx context.Context, userID domain.UserID, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deletion_jobs SET status = $2 WHERE user_id = $1`,
		uuid.UUID(userID), string(status))
	if err != nil {
		return fmt.Errorf("set deletion job status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func stepList(steps map[StepID]bool) []StepID {
	out := make([]StepID, 0, len(steps))
	for _, step := range pipelineSteps {
		if steps[step] {
			out = append(out, step)
		}
	}
	return out
}

package deletion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sapphire/pkg/domain"
	"sapphire/pkg/platform/sentinel"
)

const (
	// Redis key prefix for deletion jobs.
	jobKeyPrefix = "gdpr:deletion:"

	// Completed jobs are kept for an audit window, then expire. In-progress
	// jobs never expire: losing one would restart completed steps.
	completedJobTTL = 30 * 24 * time.Hour
)

// RedisJobStore shares deletion progress across instances so any replica can
// resume an interrupted pipeline.
type RedisJobStore struct {
	client *redis.Client
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

type redisJob struct {
	UserID         string          `json:"user_id"`
	StartedAt      time.Time       `json:"started_at"`
	SoftDelete     bool            `json:"soft_delete"`
	CompletedSteps map[StepID]bool `json:"completed_steps"`
	Status         Status          `json:"status"`
}

func jobKey(userID domain.UserID) string {
	return jobKeyPrefix + userID.String()
}

func (s *RedisJobStore) Get(ctx context.Context, userID domain.UserID) (Job, error) {
	raw, err := s.client.Get(ctx, jobKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get deletion job: %w", err)
	}

	var rj redisJob
	if err := json.Unmarshal([]byte(raw), &rj); err != nil {
		return Job{}, fmt.Errorf("decode deletion job: %w", err)
	}
	steps := rj.CompletedSteps
	if steps == nil {
		steps = make(map[StepID]bool)
	}
	return Job{
		UserID:         userID,
		StartedAt:      rj.StartedAt,
		SoftDelete:     rj.SoftDelete,
		CompletedSteps: steps,
		Status:         rj.Status,
	}, nil
}

func (s *RedisJobStore) Create(ctx context.Context, job Job) error {
	payload, err := json.Marshal(redisJob{
		UserID:         job.UserID.String(),
		StartedAt:      job.StartedAt,
		SoftDelete:     job.SoftDelete,
		CompletedSteps: job.CompletedSteps,
		Status:         job.Status,
	})
	if err != nil {
		return fmt.Errorf("encode deletion job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.UserID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create deletion job: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisJobStore) MarkStep(ctx context.Context, userID domain.UserID, step StepID) error {
	return s.update(ctx, userID, func(job *Job) {
		job.CompletedSteps[step] = true
	})
}

func (s *RedisJobStore) SetStatus(ctx context.Context, userID domain.UserID, status Status) error {
	return s.update(ctx, userID, func(job *Job) {
		job.Status = status
	})
}

// update is read-modify-write. The caller holds the per-user lock for the
// whole deletion pipeline, so there is no concurrent writer to race with.
func (s *RedisJobStore) update(ctx context.Context, userID domain.UserID, mutate func(*Job)) error {
	job, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	mutate(&job)

	payload, err := json.Marshal(redisJob{
		UserID:         job.UserID.String(),
		StartedAt:      job.StartedAt,
		SoftDelete:     job.SoftDelete,
		CompletedSteps: job.CompletedSteps,
		Status:         job.Status,
	})
	if err != nil {
		return fmt.Errorf("encode deletion job: %w", err)
	}

	ttl := time.Duration(0)
	if job.Status == StatusCompleted {
		ttl = completedJobTTL
	}
	if err := s.client.Set(ctx, jobKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("update deletion job: %w", err)
	}
	return nil
}

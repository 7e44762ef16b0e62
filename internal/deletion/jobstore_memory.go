package deletion

import (
	"context"
	"sync"

	"sapphire/pkg/domain"
	"sapphire/pkg/platform/sentinel"
)

type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[domain.UserID]Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[domain.UserID]Job)}
}

func (s *InMemoryJobStore) Get(_ context.Context, userID domain.UserID) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[userID]
	if !ok {
		return Job{}, sentinel.ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *InMemoryJobStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.UserID]; ok {
		return sentinel.ErrConflict
	}
	s.jobs[job.UserID] = cloneJob(job)
	return nil
}

func (s *InMemoryJobStore) MarkStep(_ context.Context, userID domain.UserID, step StepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if job.CompletedSteps == nil {
		job.CompletedSteps = make(map[StepID]bool)
	}
	job.CompletedSteps[step] = true
	s.jobs[userID] = job
	return nil
}

func (s *InMemoryJobStore) SetStatus(_ context.Context, userID domain.UserID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	job.Status = status
	s.jobs[userID] = job
	return nil
}

func cloneJob(job Job) Job {
	steps := make(map[StepID]bool, len(job.CompletedSteps))
	for k, v := range job.CompletedSteps {
		steps[k] = v
	}
	job.CompletedSteps = steps
	return job
}

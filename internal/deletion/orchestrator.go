package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/platform/metrics"
	"sapphire/internal/platform/privacy"
	"sapphire/internal/userdata"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
	"sapphire/pkg/platform/sentinel"
)

// maxStepRetries bounds the in-process retries around one collaborator call.
// The job itself stays resumable, so giving up here only defers to the
// caller's retry.
const maxStepRetries = 3

// Orchestrator executes the cascading account deletion pipeline. The job is
// the idempotency key: completed steps are never re-run, every leaf operation
// is check-before-act, and concurrent calls for one user collapse onto the
// single active job.
type Orchestrator struct {
	jobs     JobStore
	consents consent.Store
	profiles userdata.ProfileRepository
	datasets userdata.DatasetRepository
	grants   userdata.SharingGrantRepository
	dids     userdata.DIDDocumentRepository
	log      *audit.Log
	strategy privacy.Strategy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	group singleflight.Group
}

func NewOrchestrator(
	jobs JobStore,
	consents consent.Store,
	profiles userdata.ProfileRepository,
	datasets userdata.DatasetRepository,
	grants userdata.SharingGrantRepository,
	dids userdata.DIDDocumentRepository,
	log *audit.Log,
	strategy privacy.Strategy,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		jobs:     jobs,
		consents: consents,
		profiles: profiles,
		datasets: datasets,
		grants:   grants,
		dids:     dids,
		log:      log,
		strategy: strategy,
		logger:   logger,
		metrics:  m,
	}
}

// JobStatus returns the user's deletion job status and whether a job exists.
// Every other operation of the engine checks this before proceeding: a
// completed job makes the user terminal, an in-progress one conflicts with
// consent writes and exports.
func (o *Orchestrator) JobStatus(ctx context.Context, userID domain.UserID) (Status, bool, error) {
	job, err := o.jobs.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return job.Status, true, nil
}

// Delete runs the pipeline to completion. Re-invoking for a user with an
// in-progress job performs only the remaining steps; invoking after
// completion is a successful no-op. Concurrent calls for the same user share
// one execution via singleflight.
func (o *Orchestrator) Delete(ctx context.Context, userID domain.UserID, softDelete bool) error {
	_, err, _ := o.group.Do(userID.String(), func() (any, error) {
		return nil, o.run(ctx, userID, softDelete)
	})
	return err
}

func (o *Orchestrator) run(ctx context.Context, userID domain.UserID, softDelete bool) error {
	job, err := o.loadOrCreate(ctx, userID, softDelete)
	if err != nil {
		return err
	}
	if job.Status == StatusCompleted {
		o.logger.InfoContext(ctx, "deletion already completed, no-op",
			"user_id", userID.String())
		return nil
	}

	for _, step := range job.Remaining() {
		if err := o.runStep(ctx, job, step); err != nil {
			o.metrics.DeletionSteps.WithLabelValues(string(step), "failed").Inc()
			o.logger.ErrorContext(ctx, "deletion step failed, job stays resumable",
				"user_id", userID.String(),
				"step", string(step),
				"error", err.Error(),
			)
			// The job stays in_progress so a retry resumes here.
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "deletion step failed: "+string(step))
		}
		if err := o.jobs.MarkStep(ctx, userID, step); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deletion progress")
		}
		o.metrics.DeletionSteps.WithLabelValues(string(step), "completed").Inc()
	}

	if err := o.jobs.SetStatus(ctx, userID, StatusCompleted); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete deletion job")
	}
	o.metrics.DeletionsComplete.Inc()
	o.logger.InfoContext(ctx, "account deletion completed",
		"user_id", userID.String(),
		"soft_delete", job.SoftDelete,
	)
	return nil
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, userID domain.UserID, softDelete bool) (Job, error) {
	job, err := o.jobs.Get(ctx, userID)
	if err == nil {
		if job.Status == StatusInProgress {
			o.metrics.DeletionsResumed.Inc()
		}
		return job, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Job{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deletion job")
	}

	// Refuse to start a job for a user that never existed; an in-flight or
	// completed job is the only state where the profile may legitimately be
	// missing already.
	if _, err := o.profiles.Get(ctx, userID); errors.Is(err, sentinel.ErrNotFound) {
		return Job{}, dErrors.New(dErrors.CodeUserNotFound, "user not found")
	} else if err != nil {
		return Job{}, dErrors.Wrap(err, dErrors.CodeCollaborator, "profile repository failed")
	}

	job = Job{
		UserID:         userID,
		StartedAt:      time.Now().UTC(),
		SoftDelete:     softDelete,
		CompletedSteps: make(map[StepID]bool),
		Status:         StatusInProgress,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Another instance created it between Get and Create.
			return o.loadOrCreate(ctx, userID, softDelete)
		}
		return Job{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create deletion job")
	}

	mode := "hard"
	if softDelete {
		mode = "soft (" + o.strategy.Name() + ")"
	}
	if err := o.log.Record(ctx, userID, audit.ActionAccountDeletionStarted, "mode="+mode); err != nil {
		return Job{}, err
	}
	o.metrics.DeletionsStarted.Inc()
	return job, nil
}

// runStep executes one pipeline stage with bounded retries. Leaf operations
// are check-before-act so re-execution against partially deleted data is safe.
func (o *Orchestrator) runStep(ctx context.Context, job Job, step StepID) error {
	op := func() error {
		switch step {
		case StepSharingGrants:
			return o.eraseOrAnonymize(ctx, job, o.grants.DeleteForUser, o.grants.AnonymizeForUser)
		case StepDatasets:
			return o.eraseOrAnonymize(ctx, job, o.datasets.DeleteForUser, o.datasets.AnonymizeForUser)
		case StepDIDDocuments:
			return o.eraseOrAnonymize(ctx, job, o.dids.DeleteForUser, o.dids.AnonymizeForUser)
		case StepConsentHistory:
			if job.SoftDelete {
				return o.consents.AnonymizeForUser(ctx, job.UserID, o.strategy)
			}
			return o.consents.DeleteForUser(ctx, job.UserID)
		case StepProfile:
			if job.SoftDelete {
				return o.profiles.Anonymize(ctx, job.UserID, o.strategy)
			}
			return o.profiles.Delete(ctx, job.UserID)
		case StepFinalize:
			return o.finalize(ctx, job)
		default:
			return fmt.Errorf("unknown deletion step: %s", step)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxStepRetries), ctx)
	return backoff.Retry(op, b)
}

type stepFn func(ctx context.Context, userID domain.UserID) error

type anonymizeFn func(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error

func (o *Orchestrator) eraseOrAnonymize(ctx context.Context, job Job, erase stepFn, anonymize anonymizeFn) error {
	if job.SoftDelete {
		return anonymize(ctx, job.UserID, o.strategy)
	}
	return erase(ctx, job.UserID)
}

// finalize appends the completion entry and severs the audit trail's link to
// the user. The trail survives deletion under the pseudonymized reference.
// Like every other leaf it is check-before-act: a retry after the entry was
// written but before the step was marked must not append a second one.
func (o *Orchestrator) finalize(ctx context.Context, job Job) error {
	recorded, err := o.completionRecorded(ctx, job.UserID)
	if err != nil {
		return err
	}
	if !recorded {
		if err := o.log.Record(ctx, job.UserID, audit.ActionAccountDeletionCompleted,
			fmt.Sprintf("soft_delete=%t", job.SoftDelete)); err != nil {
			return err
		}
	}
	pseudonym := o.strategy.SubjectRef(job.UserID.String())
	return o.log.PseudonymizeUser(ctx, job.UserID, pseudonym)
}

// completionRecorded reports whether the user's trail already carries the
// completion entry under either the live or the pseudonymized reference.
func (o *Orchestrator) completionRecorded(ctx context.Context, userID domain.UserID) (bool, error) {
	for _, ref := range []string{userID.String(), o.strategy.SubjectRef(userID.String())} {
		entries, err := o.log.ListForRef(ctx, ref)
		if err != nil {
			return false, err
		}
		for _, e := range entries {
			if e.Action == audit.ActionAccountDeletionCompleted {
				return true, nil
			}
		}
	}
	return false, nil
}

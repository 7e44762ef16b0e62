package deletion

import (
	"time"

	"sapphire/pkg/domain"
)

// Status tracks a deletion job's lifecycle. Completed is terminal: once
// reached, no read, write, export, or consent operation may succeed for the
// user again.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StepID identifies one stage of the cascading pipeline. Steps run in the
// order of pipelineSteps; a step is recorded complete only after its
// underlying operation durably succeeded, which makes the job resumable.
type StepID string

const (
	// Dependents before the records they reference: grants point at
	// datasets, datasets and DID documents hang off the profile. Consent
	// history is personal data and goes before the profile row that anchors
	// the user. The finalize step writes the completion audit entry and
	// severs the trail's link to the user.
	StepSharingGrants  StepID = "sharing_grants"
	StepDatasets       StepID = "datasets"
	StepDIDDocuments   StepID = "did_documents"
	StepConsentHistory StepID = "consent_history"
	StepProfile        StepID = "profile"
	StepFinalize       StepID = "finalize"
)

var pipelineSteps = []StepID{
	StepSharingGrants,
	StepDatasets,
	StepDIDDocuments,
	StepConsentHistory,
	StepProfile,
	StepFinalize,
}

// Job is the durable, resumable record of progress through the pipeline. It
// is the idempotency key for retries: re-invoking deletion performs only the
// steps not yet in CompletedSteps.
type Job struct {
	UserID         domain.UserID
	StartedAt      time.Time
	SoftDelete     bool
	CompletedSteps map[StepID]bool
	Status         Status
}

// Remaining returns the pipeline steps the job has not completed, in order.
func (j Job) Remaining() []StepID {
	var out []StepID
	for _, step := range pipelineSteps {
		if !j.CompletedSteps[step] {
			out = append(out, step)
		}
	}
	return out
}

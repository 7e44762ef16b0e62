package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies what a trail entry records. The set is closed; consumers
// route retention and alerting by it.
type Action string

const (
	ActionConsentChanged           Action = "consent_changed"
	ActionDataExported             Action = "data_exported"
	ActionAccountDeletionStarted   Action = "account_deletion_started"
	ActionAccountDeletionCompleted Action = "account_deletion_completed"
)

// Entry is an immutable audit fact. Entries are never updated or deleted;
// account deletion only swaps UserRef for a pseudonym so the compliance trail
// survives without identifying the subject.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	UserRef    string    `json:"userRef"`
	Action     Action    `json:"action"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurredAt"`
	// Seq disambiguates entries sharing a timestamp. Assigned by the store.
	Seq uint64 `json:"seq"`
}

package consent

import (
	"time"

	"sapphire/pkg/domain"
)

// Record is an immutable consent fact. A new decision is a new record; history
// is never rewritten, so the trail itself is legal evidence of who decided
// what, when, and from where.
type Record struct {
	UserID     domain.UserID      `json:"userId"`
	Type       domain.ConsentType `json:"consentType"`
	Granted    bool               `json:"granted"`
	RecordedAt time.Time          `json:"recordedAt"`
	// Seq disambiguates records sharing a timestamp; latest-inserted wins.
	// Assigned by the store.
	Seq       uint64 `json:"seq"`
	SourceIP  string `json:"sourceIp"`
	UserAgent string `json:"userAgent"`
}

// Status maps every type in the closed consent set to the user's current
// decision. It is derived from history on demand and never stored.
type Status map[domain.ConsentType]bool

// DeriveStatus folds the ordered record history into the current status:
// latest record wins per type, missing types default to false. The fold
// enumerates the closed set so the result is total regardless of history.
//
// Records must be ordered by (RecordedAt, Seq) ascending, which is the store
// contract for ListByUser.
func DeriveStatus(records []Record) Status {
	status := make(Status, len(domain.AllConsentTypes()))
	for _, t := range domain.AllConsentTypes() {
		status[t] = false
	}
	for _, r := range records {
		if !r.Type.IsValid() {
			continue
		}
		status[r.Type] = r.Granted
	}
	return status
}

package consent

import (
	"context"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
)

// Store persists consent records. Append and ListByUser are the request-path
// operations; DeleteForUser and AnonymizeForUser exist solely for the account
// deletion pipeline, which removes or redacts history wholesale.
type Store interface {
	// Append durably persists the record and assigns its sequence number.
	Append(ctx context.Context, record *Record) error
	// ListByUser returns the full history ordered by (RecordedAt, Seq) ascending.
	ListByUser(ctx context.Context, userID domain.UserID) ([]Record, error)
	// DeleteForUser removes the user's entire history.
	DeleteForUser(ctx context.Context, userID domain.UserID) error
	// AnonymizeForUser redacts direct identifiers (source IP, user agent) on
	// the user's history in place, preserving decisions and timestamps.
	AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error
}

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
)

// Log captures structured audit entries. It is append-only and uses the store
// interface for persistence so tests can swap sinks easily.
//
// Append failures are fatal to the enclosing operation: a consent change or
// lifecycle action without its trail entry must not be acknowledged.
type Log struct {
	store Store
}

func NewLog(store Store) *Log {
	return &Log{store: store}
}

// Record appends an entry for the given user and action. The entry ID and
// timestamp are stamped here; the store assigns the sequence number.
func (l *Log) Record(ctx context.Context, userID domain.UserID, action Action, detail string) error {
	entry := &Entry{
		ID:         uuid.New(),
		UserRef:    userID.String(),
		Action:     action,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	if err := l.store.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditAppendFailed, "audit append failed")
	}
	return nil
}

// ListForUser returns the user's trail ordered by occurrence time ascending.
func (l *Log) ListForUser(ctx context.Context, userID domain.UserID) ([]Entry, error) {
	return l.store.ListByUser(ctx, userID.String())
}

// ListForRef is ListForUser for a raw subject reference. The deletion pipeline
// uses it to look up entries already filed under a pseudonym.
func (l *Log) ListForRef(ctx context.Context, ref string) ([]Entry, error) {
	return l.store.ListByUser(ctx, ref)
}

// PseudonymizeUser severs the trail's link to a deleted user by replacing the
// direct identifier with the configured pseudonym. Entries stay in place.
func (l *Log) PseudonymizeUser(ctx context.Context, userID domain.UserID, pseudonym string) error {
	return l.store.PseudonymizeUser(ctx, userID.String(), pseudonym)
}

package consent

import (
	"context"
	"fmt"
	"time"

	"sapphire/internal/audit"
	"sapphire/internal/storage"
	"sapphire/pkg/domain"
)

// Service derives consent status from history and records new decisions. It
// keeps orchestration out of handlers and the deletion pipeline.
type Service struct {
	store  Store
	log    *audit.Log
	runner storage.Runner
}

func NewService(store Store, log *audit.Log, runner storage.Runner) *Service {
	return &Service{store: store, log: log, runner: runner}
}

// Status returns the user's current decision for every type in the closed
// consent set. A user with no history gets an all-false status; the call never
// fails for an existing, non-deleted user.
func (s *Service) Status(ctx context.Context, userID domain.UserID) (Status, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DeriveStatus(records), nil
}

// History returns the full ordered decision history. Used by the export
// aggregator and audit views.
func (s *Service) History(ctx context.Context, userID domain.UserID) ([]Record, error) {
	return s.store.ListByUser(ctx, userID)
}

// Record appends a new consent decision together with its audit entry in one
// logical transaction. Recording the same granted value twice adds a redundant
// history entry on purpose: each call is a real consent event with its own
// timestamp, IP, and user agent.
//
// The audit entry is written first (log before acknowledging); if it cannot be
// appended the decision is not persisted either.
func (s *Service) Record(ctx context.Context, userID domain.UserID, consentType domain.ConsentType, granted bool, sourceIP, userAgent string) error {
	if _, err := domain.ParseConsentType(consentType.String()); err != nil {
		return err
	}

	record := &Record{
		UserID:     userID,
		Type:       consentType,
		Granted:    granted,
		RecordedAt: time.Now().UTC(),
		SourceIP:   sourceIP,
		UserAgent:  userAgent,
	}

	detail := fmt.Sprintf("%s=%t via %s", consentType, granted, clientSummary(userAgent))

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.log.Record(ctx, userID, audit.ActionConsentChanged, detail); err != nil {
			return err
		}
		return s.store.Append(ctx, record)
	})
}

// Package gdpr is the facade the external API boundary talks to. It owns no
// state: it validates identifiers, serializes operations per user, enforces
// the terminal deleted state, and delegates to the consent store, export
// aggregator, and deletion orchestrator.
package gdpr

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/deletion"
	"sapphire/internal/export"
	"sapphire/internal/platform/metrics"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
	"sapphire/pkg/platform/keylock"
	"sapphire/pkg/requestcontext"
)

// Service coordinates the privacy engine behind one stable contract.
//
// Per-user serialization: every operation holds the user's lock for its whole
// duration. Deletion therefore blocks new consent writes and exports from
// starting and waits for in-flight ones to finish; operations on different
// users share nothing and run in parallel.
type Service struct {
	consent  *consent.Service
	exporter *export.Aggregator
	deleter  *deletion.Orchestrator
	auditLog *audit.Log
	locks    *keylock.Arena
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(
	consentSvc *consent.Service,
	exporter *export.Aggregator,
	deleter *deletion.Orchestrator,
	auditLog *audit.Log,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		consent:  consentSvc,
		exporter: exporter,
		deleter:  deleter,
		auditLog: auditLog,
		locks:    keylock.New(),
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("sapphire/gdpr"),
	}
}

// GetConsentStatus returns the user's decision for every type in the closed
// consent set, all-false when the user never acted.
func (s *Service) GetConsentStatus(ctx context.Context, rawUserID string) (consent.Status, error) {
	ctx, span := s.tracer.Start(ctx, "gdpr.GetConsentStatus")
	defer span.End()

	userID, release, err := s.enter(ctx, rawUserID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.ensureLive(ctx, userID, false); err != nil {
		return nil, err
	}
	return s.consent.Status(ctx, userID)
}

// RecordConsent appends a consent decision with its paired audit entry.
func (s *Service) RecordConsent(ctx context.Context, rawUserID, rawType string, granted bool) error {
	ctx, span := s.tracer.Start(ctx, "gdpr.RecordConsent")
	defer span.End()

	consentType, err := domain.ParseConsentType(rawType)
	if err != nil {
		return err
	}

	userID, release, err := s.enter(ctx, rawUserID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.ensureLive(ctx, userID, true); err != nil {
		return err
	}

	sourceIP := requestcontext.ClientIP(ctx)
	userAgent := requestcontext.UserAgent(ctx)
	if err := s.consent.Record(ctx, userID, consentType, granted, sourceIP, userAgent); err != nil {
		return err
	}

	s.metrics.ConsentChanges.WithLabelValues(consentType.String(), boolLabel(granted)).Inc()
	s.logger.InfoContext(ctx, "consent recorded",
		"user_id", userID.String(),
		"consent_type", consentType.String(),
		"granted", granted,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ExportUserData builds the complete personal data bundle for the user.
func (s *Service) ExportUserData(ctx context.Context, rawUserID string) (export.Bundle, error) {
	ctx, span := s.tracer.Start(ctx, "gdpr.ExportUserData")
	defer span.End()

	userID, release, err := s.enter(ctx, rawUserID)
	if err != nil {
		return export.Bundle{}, err
	}
	defer release()

	if err := s.ensureLive(ctx, userID, true); err != nil {
		return export.Bundle{}, err
	}

	bundle, err := s.exporter.Build(ctx, userID)
	if err != nil {
		return export.Bundle{}, err
	}

	s.metrics.ExportsBuilt.Inc()
	s.logger.InfoContext(ctx, "data export built",
		"user_id", userID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return bundle, nil
}

// DeleteUserData runs the cascading deletion pipeline. Retrying after
// completion is a successful no-op; retrying after a failure resumes at the
// first incomplete step.
func (s *Service) DeleteUserData(ctx context.Context, rawUserID string, softDelete bool) error {
	ctx, span := s.tracer.Start(ctx, "gdpr.DeleteUserData")
	defer span.End()

	userID, release, err := s.enter(ctx, rawUserID)
	if err != nil {
		return err
	}
	defer release()

	return s.deleter.Delete(ctx, userID, softDelete)
}

// AuditTrail returns the user's lifecycle trail, oldest first.
func (s *Service) AuditTrail(ctx context.Context, rawUserID string) ([]audit.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "gdpr.AuditTrail")
	defer span.End()

	userID, release, err := s.enter(ctx, rawUserID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.ensureLive(ctx, userID, false); err != nil {
		return nil, err
	}
	return s.auditLog.ListForUser(ctx, userID)
}

// enter validates the raw identifier and takes the user's lock.
func (s *Service) enter(ctx context.Context, rawUserID string) (domain.UserID, func(), error) {
	userID, err := domain.ParseUserID(rawUserID)
	if err != nil {
		return domain.UserID{}, nil, err
	}
	release, err := s.locks.Acquire(ctx, userID.String())
	if err != nil {
		return domain.UserID{}, nil, err
	}
	return userID, release, nil
}

// ensureLive rejects operations against users whose deletion completed and,
// for mutating or export operations, against users whose deletion is underway
// but unfinished. Completion is terminal: nothing succeeds afterwards.
func (s *Service) ensureLive(ctx context.Context, userID domain.UserID, rejectInProgress bool) error {
	status, exists, err := s.deleter.JobStatus(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check deletion state")
	}
	if !exists {
		return nil
	}
	switch {
	case status == deletion.StatusCompleted:
		return dErrors.New(dErrors.CodeUserNotFound, "user data has been deleted")
	case rejectInProgress && status == deletion.StatusInProgress:
		return dErrors.New(dErrors.CodeConflict, "account deletion is in progress")
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

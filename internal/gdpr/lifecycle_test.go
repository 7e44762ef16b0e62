package gdpr

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/deletion"
	"sapphire/internal/export"
	"sapphire/internal/platform/privacy"
	"sapphire/internal/storage"
	"sapphire/internal/userdata"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
	"sapphire/pkg/requestcontext"
	"sapphire/pkg/testutil"
)

// newScenarioService builds a fully wired in-memory service for narrative
// lifecycle tests.
func newScenarioService(t *testing.T) (*Service, *userdata.InMemoryProfiles, *userdata.InMemoryDatasets) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := storage.NewMemoryRunner()
	auditLog := audit.NewLog(audit.NewInMemoryStore())
	strategy := privacy.NewPseudonymizer("test-key")

	consents := consent.NewInMemoryStore()
	profiles := userdata.NewInMemoryProfiles()
	datasets := userdata.NewInMemoryDatasets()
	grants := userdata.NewInMemoryGrants()
	dids := userdata.NewInMemoryDIDDocuments()

	consentSvc := consent.NewService(consents, auditLog, runner)
	exporter := export.NewAggregator(profiles, datasets, grants, dids, consentSvc, auditLog, runner)
	deleter := deletion.NewOrchestrator(deletion.NewInMemoryJobStore(), consents, profiles, datasets, grants, dids, auditLog, strategy, logger, testMetrics)

	return NewService(consentSvc, exporter, deleter, auditLog, logger, testMetrics), profiles, datasets
}

// TestAccountLifecycleScenario walks one user through the full engine:
// consent, export, deletion, and the terminal state afterwards.
func TestAccountLifecycleScenario(t *testing.T) {
	service, profiles, datasets := newScenarioService(t)
	userID := domain.UserID(uuid.New())
	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "curl/8.0")

	testutil.Given(t, "a user with a profile and one dataset", func(t *testing.T) {
		require.NoError(t, profiles.Save(ctx, userdata.Profile{UserID: userID, Email: "alice@example.org"}))
		require.NoError(t, datasets.Save(ctx, userdata.Dataset{ID: domain.DatasetID(uuid.New()), OwnerID: userID, Title: "corals"}))
	})

	testutil.When(t, "the user grants and then withdraws a consent", func(t *testing.T) {
		require.NoError(t, service.RecordConsent(ctx, userID.String(), "data_linking", true))
		require.NoError(t, service.RecordConsent(ctx, userID.String(), "data_linking", false))

		status, err := service.GetConsentStatus(ctx, userID.String())
		require.NoError(t, err)
		assert.False(t, status[domain.ConsentDataLinking])
	})

	testutil.And(t, "exports their data", func(t *testing.T) {
		bundle, err := service.ExportUserData(ctx, userID.String())
		require.NoError(t, err)
		assert.Len(t, bundle.ConsentHistory, 2, "withdrawn consent stays in history")
		assert.Len(t, bundle.Datasets, 1)

		trail, err := service.AuditTrail(ctx, userID.String())
		require.NoError(t, err)
		require.Len(t, trail, 3)
		assert.Equal(t, audit.ActionDataExported, trail[2].Action)
	})

	testutil.Then(t, "deleting the account is terminal and repeatable", func(t *testing.T) {
		require.NoError(t, service.DeleteUserData(ctx, userID.String(), false))
		require.NoError(t, service.DeleteUserData(ctx, userID.String(), false))

		_, err := service.GetConsentStatus(ctx, userID.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUserNotFound))
		_, err = service.ExportUserData(ctx, userID.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUserNotFound))
	})
}

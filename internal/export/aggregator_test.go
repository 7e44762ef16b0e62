package export

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/storage"
	"sapphire/internal/userdata"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
)

type AggregatorSuite struct {
	suite.Suite
	ctx        context.Context
	profiles   *userdata.InMemoryProfiles
	datasets   *userdata.InMemoryDatasets
	grants     *userdata.InMemoryGrants
	dids       *userdata.InMemoryDIDDocuments
	consentSvc *consent.Service
	auditStore *audit.InMemoryStore
	aggregator *Aggregator
	userID     domain.UserID
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.profiles = userdata.NewInMemoryProfiles()
	s.datasets = userdata.NewInMemoryDatasets()
	s.grants = userdata.NewInMemoryGrants()
	s.dids = userdata.NewInMemoryDIDDocuments()
	s.auditStore = audit.NewInMemoryStore()
	auditLog := audit.NewLog(s.auditStore)
	runner := storage.NewMemoryRunner()
	s.consentSvc = consent.NewService(consent.NewInMemoryStore(), auditLog, runner)
	s.aggregator = NewAggregator(s.profiles, s.datasets, s.grants, s.dids, s.consentSvc, auditLog, runner)
	s.userID = domain.UserID(uuid.New())
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) seedProfile() {
	s.Require().NoError(s.profiles.Save(s.ctx, userdata.Profile{
		UserID:        s.userID,
		Email:         "alice@example.org",
		DisplayName:   "alice",
		WalletAddress: "0xabc",
		CreatedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
}

func (s *AggregatorSuite) TestUnknownUserRejected() {
	_, err := s.aggregator.Build(s.ctx, s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeUserNotFound))
}

func (s *AggregatorSuite) TestBundleIsFieldComplete() {
	s.seedProfile()

	bundle, err := s.aggregator.Build(s.ctx, s.userID)
	s.Require().NoError(err)

	// Empty categories serialize as [] so repeated exports can be diffed.
	raw, err := json.Marshal(bundle)
	s.Require().NoError(err)
	var decoded map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	for _, field := range []string{"profile", "consentHistory", "datasets", "sharingGrants", "didDocuments", "generatedAt"} {
		s.Contains(decoded, field)
		s.NotEqual("null", string(decoded[field]), "category %s must never be null", field)
	}
}

func (s *AggregatorSuite) TestBundleCarriesAllCategories() {
	s.seedProfile()
	datasetID := domain.DatasetID(uuid.New())
	s.Require().NoError(s.datasets.Save(s.ctx, userdata.Dataset{
		ID: datasetID, OwnerID: s.userID, Title: "corals", DataverseDOI: "doi:10.5072/FK2/X1",
	}))
	s.Require().NoError(s.grants.Save(s.ctx, userdata.SharingGrant{
		ID: domain.GrantID(uuid.New()), DatasetID: datasetID, OwnerID: s.userID, GranteeDID: "did:example:bob", Scope: "read",
	}))
	s.Require().NoError(s.dids.Save(s.ctx, userdata.DIDDocument{
		DID: "did:example:alice", OwnerID: s.userID, Document: json.RawMessage(`{"id":"did:example:alice"}`),
	}))
	s.Require().NoError(s.consentSvc.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0"))

	bundle, err := s.aggregator.Build(s.ctx, s.userID)
	s.Require().NoError(err)

	s.Equal("alice@example.org", bundle.Profile.Email)
	s.Len(bundle.ConsentHistory, 1)
	s.Len(bundle.Datasets, 1)
	s.Len(bundle.SharingGrants, 1)
	s.Len(bundle.DIDDocuments, 1)
	s.False(bundle.GeneratedAt.IsZero())
}

func (s *AggregatorSuite) TestRepeatedExportsMatchExceptTimestamp() {
	s.seedProfile()
	s.Require().NoError(s.consentSvc.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0"))

	first, err := s.aggregator.Build(s.ctx, s.userID)
	s.Require().NoError(err)
	second, err := s.aggregator.Build(s.ctx, s.userID)
	s.Require().NoError(err)

	first.GeneratedAt = time.Time{}
	second.GeneratedAt = time.Time{}
	s.Equal(first, second)
}

func (s *AggregatorSuite) TestCollaboratorFailureFailsWholeExport() {
	s.seedProfile()
	failing := &failingDatasets{err: errors.New("dataset service down")}
	aggregator := NewAggregator(s.profiles, failing, s.grants, s.dids, s.consentSvc, audit.NewLog(s.auditStore), storage.NewMemoryRunner())

	_, err := aggregator.Build(s.ctx, s.userID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCollaborator))
}

func (s *AggregatorSuite) TestExportWritesAuditEntry() {
	s.seedProfile()

	_, err := s.aggregator.Build(s.ctx, s.userID)
	s.Require().NoError(err)

	entries, err := s.auditStore.ListByUser(s.ctx, s.userID.String())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionDataExported, entries[0].Action)
	s.Contains(entries[0].Detail, "categories=5")
}

// failingDatasets simulates an unreachable dataset collaborator.
type failingDatasets struct {
	userdata.InMemoryDatasets
	err error
}

func (f *failingDatasets) ListForUser(context.Context, domain.UserID) ([]userdata.Dataset, error) {
	return nil, f.err
}

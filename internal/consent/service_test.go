package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sapphire/internal/audit"
	"sapphire/internal/storage"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
)

type ConsentServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	userID     domain.UserID
}

func (s *ConsentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(s.store, audit.NewLog(s.auditStore), storage.NewMemoryRunner())
	s.userID = domain.UserID(uuid.New())
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) TestStatusWithNoHistoryIsAllFalse() {
	status, err := s.service.Status(s.ctx, s.userID)
	s.Require().NoError(err)

	s.Len(status, len(domain.AllConsentTypes()))
	for _, ct := range domain.AllConsentTypes() {
		granted, ok := status[ct]
		s.True(ok, "status must cover %s", ct)
		s.False(granted)
	}
}

func (s *ConsentServiceSuite) TestLatestDecisionWins() {
	s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0"))
	s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, false, "203.0.113.7", "curl/8.0"))
	s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentAIRecommendations, true, "203.0.113.7", "curl/8.0"))

	status, err := s.service.Status(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(status[domain.ConsentDataLinking])
	s.True(status[domain.ConsentAIRecommendations])
	s.False(status[domain.ConsentGeneralDataProcessing])
}

func (s *ConsentServiceSuite) TestSameTimestampResolvedBySequence() {
	// Two records with an identical timestamp; insertion order must decide.
	now := time.Now().UTC()
	s.Require().NoError(s.store.Append(s.ctx, &Record{UserID: s.userID, Type: domain.ConsentDataLinking, Granted: true, RecordedAt: now}))
	s.Require().NoError(s.store.Append(s.ctx, &Record{UserID: s.userID, Type: domain.ConsentDataLinking, Granted: false, RecordedAt: now}))

	status, err := s.service.Status(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(status[domain.ConsentDataLinking])
}

func (s *ConsentServiceSuite) TestRecordPairsAuditEntry() {
	s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"))

	history, err := s.service.History(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("203.0.113.7", history[0].SourceIP)

	entries, err := s.auditStore.ListByUser(s.ctx, s.userID.String())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionConsentChanged, entries[0].Action)
	s.Contains(entries[0].Detail, "data_linking=true")
	s.Contains(entries[0].Detail, "Firefox")
}

func (s *ConsentServiceSuite) TestAuditFailureAbortsRecord() {
	s.auditStore.FailNextAppend(errors.New("sink down"))

	err := s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditAppendFailed))

	history, err := s.service.History(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Empty(history, "a decision without its trail entry must not be persisted")
}

func (s *ConsentServiceSuite) TestInvalidTypeRejectedBeforeStore() {
	err := s.service.Record(s.ctx, s.userID, domain.ConsentType("telepathy"), true, "203.0.113.7", "curl/8.0")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidConsentType))

	history, listErr := s.service.History(s.ctx, s.userID)
	s.Require().NoError(listErr)
	s.Empty(history)
}

func (s *ConsentServiceSuite) TestRepeatedIdenticalDecisionsAllKept() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0"))
	}

	history, err := s.service.History(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Len(history, 3, "each consent event is evidence and must be kept")
}

func (s *ConsentServiceSuite) TestHistoryIsolatedPerUser() {
	other := domain.UserID(uuid.New())
	s.Require().NoError(s.service.Record(s.ctx, s.userID, domain.ConsentDataLinking, true, "203.0.113.7", "curl/8.0"))

	history, err := s.service.History(s.ctx, other)
	s.Require().NoError(err)
	s.Empty(history)
}

package consent

import (
	"context"
	"sort"
	"sync"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.UserID][]Record
	seq     uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.UserID][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	record.Seq = s.seq
	s.records[record.UserID] = append(s.records[record.UserID], *record)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Record{}, s.records[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (s *InMemoryStore) DeleteForUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *InMemoryStore) AnonymizeForUser(_ context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[userID]
	subject := userID.String()
	for i := range records {
		records[i].SourceIP = strategy.Transform(subject, "source_ip", records[i].SourceIP)
		records[i].UserAgent = strategy.Transform(subject, "user_agent", records[i].UserAgent)
	}
	return nil
}

package audit

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore keeps the audit trail in process memory. It backs tests and
// single-instance deployments without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	seq     uint64

	// failNext forces the next Append to fail; tests use it to verify that
	// operations abort when their trail entry cannot be written.
	failNext error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.seq++
	entry.Seq = s.seq
	s.entries[entry.UserRef] = append(s.entries[entry.UserRef], *entry)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userRef string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Entry{}, s.entries[userRef]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (s *InMemoryStore) PseudonymizeUser(_ context.Context, userRef, pseudonym string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.entries[userRef]
	if !ok {
		return nil
	}
	for i := range entries {
		entries[i].UserRef = pseudonym
	}
	s.entries[pseudonym] = append(s.entries[pseudonym], entries...)
	delete(s.entries, userRef)
	return nil
}

// FailNextAppend arms a one-shot append failure. Test hook.
func (s *InMemoryStore) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

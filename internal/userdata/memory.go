package userdata

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
	"sapphire/pkg/platform/sentinel"
)

// InMemoryProfiles backs tests and single-instance deployments.
type InMemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]Profile
}

func NewInMemoryProfiles() *InMemoryProfiles {
	return &InMemoryProfiles{profiles: make(map[domain.UserID]Profile)}
}

// Save exists so tests and the owning subsystem can seed profiles; the
// privacy engine itself never creates one.
func (s *InMemoryProfiles) Save(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *InMemoryProfiles) Get(_ context.Context, userID domain.UserID) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryProfiles) Delete(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}

func (s *InMemoryProfiles) Anonymize(_ context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	subject := userID.String()
	p.Email = strategy.Transform(subject, "email", p.Email)
	p.DisplayName = strategy.Transform(subject, "display_name", p.DisplayName)
	p.WalletAddress = strategy.Transform(subject, "wallet_address", p.WalletAddress)
	s.profiles[userID] = p
	return nil
}

// InMemoryDatasets stores datasets keyed by owner.
type InMemoryDatasets struct {
	mu       sync.RWMutex
	datasets map[domain.UserID][]Dataset
}

func NewInMemoryDatasets() *InMemoryDatasets {
	return &InMemoryDatasets{datasets: make(map[domain.UserID][]Dataset)}
}

func (s *InMemoryDatasets) Save(_ context.Context, d Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[d.OwnerID] = append(s.datasets[d.OwnerID], d)
	return nil
}

func (s *InMemoryDatasets) ListForUser(_ context.Context, userID domain.UserID) ([]Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Dataset{}, s.datasets[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *InMemoryDatasets) DeleteForUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, userID)
	return nil
}

func (s *InMemoryDatasets) AnonymizeForUser(_ context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	datasets := s.datasets[userID]
	subject := userID.String()
	for i := range datasets {
		datasets[i].ContactEmail = strategy.Transform(subject, "contact_email", datasets[i].ContactEmail)
	}
	return nil
}

// InMemoryGrants stores sharing grants keyed by owner.
type InMemoryGrants struct {
	mu     sync.RWMutex
	grants map[domain.UserID][]SharingGrant
}

func NewInMemoryGrants() *InMemoryGrants {
	return &InMemoryGrants{grants: make(map[domain.UserID][]SharingGrant)}
}

func (s *InMemoryGrants) Save(_ context.Context, g SharingGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.OwnerID] = append(s.grants[g.OwnerID], g)
	return nil
}

func (s *InMemoryGrants) ListForUser(_ context.Context, userID domain.UserID) ([]SharingGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]SharingGrant{}, s.grants[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *InMemoryGrants) DeleteForUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, userID)
	return nil
}

func (s *InMemoryGrants) AnonymizeForUser(_ context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grants := s.grants[userID]
	subject := userID.String()
	for i := range grants {
		grants[i].GranteeDID = strategy.Transform(subject, "grantee_did", grants[i].GranteeDID)
	}
	return nil
}

// InMemoryDIDDocuments stores DID documents keyed by owner.
type InMemoryDIDDocuments struct {
	mu   sync.RWMutex
	docs map[domain.UserID][]DIDDocument
}

func NewInMemoryDIDDocuments() *InMemoryDIDDocuments {
	return &InMemoryDIDDocuments{docs: make(map[domain.UserID][]DIDDocument)}
}

func (s *InMemoryDIDDocuments) Save(_ context.Context, d DIDDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.OwnerID] = append(s.docs[d.OwnerID], d)
	return nil
}

func (s *InMemoryDIDDocuments) ListForUser(_ context.Context, userID domain.UserID) ([]DIDDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]DIDDocument{}, s.docs[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].DID < out[j].DID })
	return out, nil
}

func (s *InMemoryDIDDocuments) DeleteForUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, userID)
	return nil
}

func (s *InMemoryDIDDocuments) AnonymizeForUser(_ context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[userID]
	subject := userID.String()
	for i := range docs {
		pseudonym := strategy.Transform(subject, "did", docs[i].DID)
		docs[i].DID = pseudonym
		stub, _ := json.Marshal(map[string]string{"id": pseudonym})
		docs[i].Document = stub
	}
	return nil
}

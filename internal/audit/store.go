package audit

import "context"

// Store persists audit entries. Implementations must be append-only: Append
// and the UserRef rewrite in PseudonymizeUser are the only mutations.
type Store interface {
	// Append durably persists the entry and assigns its sequence number.
	Append(ctx context.Context, entry *Entry) error
	// ListByUser returns the entries for a user ordered by occurrence time
	// ascending, sequence number breaking ties.
	ListByUser(ctx context.Context, userRef string) ([]Entry, error)
	// PseudonymizeUser rewrites UserRef on every entry of a user. Entries are
	// otherwise untouched.
	PseudonymizeUser(ctx context.Context, userRef, pseudonym string) error
}

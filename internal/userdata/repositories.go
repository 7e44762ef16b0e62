package userdata

import (
	"context"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
)

// Repositories are interface-driven to keep the engine testable and to allow
// swapping in-memory, database, or remote persistence without rewiring the
// export and deletion pipelines.
//
// Every DeleteForUser and AnonymizeForUser implementation must be safe to
// re-execute against partially deleted data: the deletion pipeline re-runs
// steps after failures and must never apply a step twice destructively.

type ProfileRepository interface {
	Get(ctx context.Context, userID domain.UserID) (Profile, error)
	Delete(ctx context.Context, userID domain.UserID) error
	Anonymize(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error
}

type DatasetRepository interface {
	ListForUser(ctx context.Context, userID domain.UserID) ([]Dataset, error)
	DeleteForUser(ctx context.Context, userID domain.UserID) error
	AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error
}

type SharingGrantRepository interface {
	ListForUser(ctx context.Context, userID domain.UserID) ([]SharingGrant, error)
	DeleteForUser(ctx context.Context, userID domain.UserID) error
	AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error
}

type DIDDocumentRepository interface {
	ListForUser(ctx context.Context, userID domain.UserID) ([]DIDDocument, error)
	DeleteForUser(ctx context.Context, userID domain.UserID) error
	AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error
}

package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/storage"
	"sapphire/internal/userdata"
	"sapphire/pkg/domain"
	dErrors "sapphire/pkg/domain-errors"
	"sapphire/pkg/platform/sentinel"
)

// Aggregator assembles export bundles. All reads happen inside one
// transaction boundary so the bundle reflects a single consistent snapshot;
// reads are sequential because a SQL transaction is not safe for concurrent
// queries.
//
// Aggregation is all-or-nothing: a collaborator failure fails the whole
// export with that error surfaced. No partial bundle is ever returned.
type Aggregator struct {
	profiles userdata.ProfileRepository
	datasets userdata.DatasetRepository
	grants   userdata.SharingGrantRepository
	dids     userdata.DIDDocumentRepository
	consent  *consent.Service
	log      *audit.Log
	runner   storage.Runner
}

func NewAggregator(
	profiles userdata.ProfileRepository,
	datasets userdata.DatasetRepository,
	grants userdata.SharingGrantRepository,
	dids userdata.DIDDocumentRepository,
	consentSvc *consent.Service,
	log *audit.Log,
	runner storage.Runner,
) *Aggregator {
	return &Aggregator{
		profiles: profiles,
		datasets: datasets,
		grants:   grants,
		dids:     dids,
		consent:  consentSvc,
		log:      log,
		runner:   runner,
	}
}

// Build assembles the bundle for userID. Returns CodeUserNotFound when no
// profile exists. The DataExported audit entry is part of the same
// transaction: an export that cannot be audited is not acknowledged.
func (a *Aggregator) Build(ctx context.Context, userID domain.UserID) (Bundle, error) {
	var bundle Bundle

	err := a.runner.RunInTx(ctx, func(ctx context.Context) error {
		profile, err := a.profiles.Get(ctx, userID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUserNotFound, "user not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "profile repository failed")
		}

		history, err := a.consent.History(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "consent history read failed")
		}
		datasets, err := a.datasets.ListForUser(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "dataset repository failed")
		}
		grants, err := a.grants.ListForUser(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "sharing grant repository failed")
		}
		dids, err := a.dids.ListForUser(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "DID document repository failed")
		}

		bundle = Bundle{
			Profile:        profile,
			ConsentHistory: emptyIfNil(history),
			Datasets:       emptyIfNil(datasets),
			SharingGrants:  emptyIfNil(grants),
			DIDDocuments:   emptyIfNil(dids),
			GeneratedAt:    time.Now().UTC(),
		}

		detail := fmt.Sprintf("categories=5 consent_records=%d datasets=%d grants=%d did_documents=%d",
			len(bundle.ConsentHistory), len(bundle.Datasets), len(bundle.SharingGrants), len(bundle.DIDDocuments))
		return a.log.Record(ctx, userID, audit.ActionDataExported, detail)
	})
	if err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// emptyIfNil keeps the bundle field-complete: absent categories serialize as
// [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

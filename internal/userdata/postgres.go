package userdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
	"sapphire/pkg/platform/sentinel"
	txcontext "sapphire/pkg/platform/tx"
)

// Postgres-backed repositories. These read and write the tables owned by the
// surrounding subsystems; the privacy engine only touches the narrow surface
// declared in repositories.go.
//
// All queries honor a transaction carried in context so export snapshots and
// deletion steps see consistent state.

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(ctx context.Context, db *sql.DB) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// PostgresProfiles reads and removes rows from the profiles table.
type PostgresProfiles struct {
	db *sql.DB
}

func NewPostgresProfiles(db *sql.DB) *PostgresProfiles {
	return &PostgresProfiles{db: db}
}

func (s *PostgresProfiles) Get(ctx context.Context, userID domain.UserID) (Profile, error) {
	query := `
		SELECT user_id, email, display_name, wallet_address, created_at
		FROM profiles WHERE user_id = $1
	`
	var p Profile
	var uid uuid.UUID
	err := pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&uid, &p.Email, &p.DisplayName, &p.WalletAddress, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.UserID = domain.UserID(uid)
	return p, nil
}

func (s *PostgresProfiles) Delete(ctx context.Context, userID domain.UserID) error {
	if _, err := pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM profiles WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *PostgresProfiles) Anonymize(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	subject := userID.String()
	query := `
		UPDATE profiles
		SET email = $2, display_name = $3, wallet_address = $4
		WHERE user_id = $1
	`
	p, err := s.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(userID),
		strategy.Transform(subject, "email", p.Email),
		strategy.Transform(subject, "display_name", p.DisplayName),
		strategy.Transform(subject, "wallet_address", p.WalletAddress))
	if err != nil {
		return fmt.Errorf("anonymize profile: %w", err)
	}
	return nil
}

// PostgresDatasets reads and removes rows from the datasets table.
type PostgresDatasets struct {
	db *sql.DB
}

func NewPostgresDatasets(db *sql.DB) *PostgresDatasets {
	return &PostgresDatasets{db: db}
}

func (s *PostgresDatasets) ListForUser(ctx context.Context, userID domain.UserID) ([]Dataset, error) {
	query := `
		SELECT id, owner_id, title, description, dataverse_doi, contact_email, tags, created_at
		FROM datasets WHERE owner_id = $1 ORDER BY id
	`
	rows, err := pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var d Dataset
		var id, owner uuid.UUID
		var tags []byte
		if err := rows.Scan(&id, &owner, &d.Title, &d.Description, &d.DataverseDOI, &d.ContactEmail, &tags, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		d.ID = domain.DatasetID(id)
		d.OwnerID = domain.UserID(owner)
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &d.Tags); err != nil {
				return nil, fmt.Errorf("decode dataset tags: %w", err)
			}
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

func (s *PostgresDatasets) DeleteForUser(ctx context.Context, userID domain.UserID) error {
	if _, err := pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM datasets WHERE owner_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete datasets: %w", err)
	}
	return nil
}

func (s *PostgresDatasets) AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	datasets, err := s.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	subject := userID.String()
	query := `UPDATE datasets SET contact_email = $2 WHERE id = $1`
	for _, d := range datasets {
		email := strategy.Transform(subject, "contact_email", d.ContactEmail)
		if _, err := pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(d.ID), email); err != nil {
			return fmt.Errorf("anonymize dataset: %w", err)
		}
	}
	return nil
}

// PostgresGrants reads and removes rows from the sharing_grants table.
type PostgresGrants struct {
	db *sql.DB
}

func NewPostgresGrants(db *sql.DB) *PostgresGrants {
	return &PostgresGrants{db: db}
}

func (s *PostgresGrants) ListForUser(ctx context.Context, userID domain.UserID) ([]SharingGrant, error) {
	query := `
		SELECT id, dataset_id, owner_id, grantee_did, scope, created_at
		FROM sharing_grants WHERE owner_id = $1 ORDER BY id
	`
	rows, err := pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list sharing grants: %w", err)
	}
	defer rows.Close()

	var grants []SharingGrant
	for rows.Next() {
		var g SharingGrant
		var id, datasetID, owner uuid.UUID
		if err := rows.Scan(&id, &datasetID, &owner, &g.GranteeDID, &g.Scope, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sharing grant: %w", err)
		}
		g.ID = domain.GrantID(id)
		g.DatasetID = domain.DatasetID(datasetID)
		g.OwnerID = domain.UserID(owner)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *PostgresGrants) DeleteForUser(ctx context.Context, userID domain.UserID) error {
	if _, err := pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM sharing_grants WHERE owner_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete sharing grants: %w", err)
	}
	return nil
}

func (s *PostgresGrants) AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	grants, err := s.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	subject := userID.String()
	query := `UPDATE sharing_grants SET grantee_did = $2 WHERE id = $1`
	for _, g := range grants {
		did := strategy.Transform(subject, "grantee_did", g.GranteeDID)
		if _, err := pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(g.ID), did); err != nil {
			return fmt.Errorf("anonymize sharing grant: %w", err)
		}
	}
	return nil
}

// PostgresDIDDocuments reads and removes rows from the did_documents table.
type PostgresDIDDocuments struct {
	db *sql.DB
}

func NewPostgresDIDDocuments(db *sql.DB) *PostgresDIDDocuments {
	return &PostgresDIDDocuments{db: db}
}

func (s *PostgresDIDDocuments) ListForUser(ctx context.Context, userID domain.UserID) ([]DIDDocument, error) {
	query := `
		SELECT did, owner_id, document, created_at
		FROM did_documents WHERE owner_id = $1 ORDER BY did
	`
	rows, err := pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list did documents: %w", err)
	}
	defer rows.Close()

	var docs []DIDDocument
	for rows.Next() {
		var d DIDDocument
		var owner uuid.UUID
		var doc []byte
		if err := rows.Scan(&d.DID, &owner, &doc, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan did document: %w", err)
		}
		d.OwnerID = domain.UserID(owner)
		d.Document = json.RawMessage(doc)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresDIDDocuments) DeleteForUser(ctx context.Context, userID domain.UserID) error {
	if _, err := pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM did_documents WHERE owner_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete did documents: %w", err)
	}
	return nil
}

func (s *PostgresDIDDocuments) AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	docs, err := s.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	subject := userID.String()
	query := `UPDATE did_documents SET did = $2, document = $3 WHERE did = $1`
	for _, d := range docs {
		pseudonym := strategy.Transform(subject, "did", d.DID)
		stub, err := json.Marshal(map[string]string{"id": pseudonym})
		if err != nil {
			return fmt.Errorf("encode did stub: %w", err)
		}
		if _, err := pick(ctx, s.db).ExecContext(ctx, query, d.DID, pseudonym, stub); err != nil {
			return fmt.Errorf("anonymize did document: %w", err)
		}
	}
	return nil
}

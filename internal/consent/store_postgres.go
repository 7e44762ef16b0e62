package consent

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"sapphire/internal/platform/privacy"
	"sapphire/pkg/domain"
	txcontext "sapphire/pkg/platform/tx"
)

// PostgresStore persists consent records in an append-only table.
//
// Schema:
//
//	CREATE TABLE consent_records (
//	    user_id      UUID NOT NULL,
//	    consent_type TEXT NOT NULL,
//	    granted      BOOLEAN NOT NULL,
//	    recorded_at  TIMESTAMPTZ NOT NULL,
//	    seq          BIGSERIAL,
//	    source_ip    TEXT NOT NULL DEFAULT '',
//	    user_agent   TEXT NOT NULL DEFAULT '',
//	    PRIMARY KEY (user_id, seq)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO consent_records (user_id, consent_type, granted, recorded_at, source_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(record.UserID), string(record.Type), record.Granted,
		record.RecordedAt, record.SourceIP, record.UserAgent)
	if err := row.Scan(&record.Seq); err != nil {
		return fmt.Errorf("append consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]Record, error) {
	query := `
		SELECT user_id, consent_type, granted, recorded_at, seq, source_ip, user_agent
		FROM consent_records
		WHERE user_id = $1
		ORDER BY recorded_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var uid uuid.UUID
		var consentType string
		if err := rows.Scan(&uid, &consentType, &r.Granted, &r.RecordedAt, &r.Seq, &r.SourceIP, &r.UserAgent); err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		r.UserID = domain.UserID(uid)
		r.Type = domain.ConsentType(consentType)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) DeleteForUser(ctx context.Context, userID domain.UserID) error {
	query := `DELETE FROM consent_records WHERE user_id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete consent records: %w", err)
	}
	return nil
}

func (s *PostgresStore) AnonymizeForUser(ctx context.Context, userID domain.UserID, strategy privacy.Strategy) error {
	// Redaction happens row by row because the pseudonym depends on the
	// original value only through the strategy, which lives in Go code.
	records, err := s.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	subject := userID.String()
	query := `UPDATE consent_records SET source_ip = $3, user_agent = $4 WHERE user_id = $1 AND seq = $2`
	for _, r := range records {
		ip := strategy.Transform(subject, "source_ip", r.SourceIP)
		ua := strategy.Transform(subject, "user_agent", r.UserAgent)
		if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(userID), r.Seq, ip, ua); err != nil {
			return fmt.Errorf("anonymize consent record: %w", err)
		}
	}
	return nil
}

package audit

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "sapphire/pkg/platform/tx"
)

// PostgresStore persists audit entries in an append-only table.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    id          UUID PRIMARY KEY,
//	    user_ref    TEXT NOT NULL,
//	    action      TEXT NOT NULL,
//	    detail      TEXT NOT NULL DEFAULT '',
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    seq         BIGSERIAL
//	);
//	CREATE INDEX audit_entries_user_idx ON audit_entries (user_ref, occurred_at, seq);
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

// execer returns the transaction from context when one is open so audit
// appends commit or roll back together with the write that triggered them.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO audit_entries (id, user_ref, action, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`
	row := s.execer(ctx).QueryRowContext(ctx, query,
		entry.ID, entry.UserRef, string(entry.Action), entry.Detail, entry.OccurredAt)
	if err := row.Scan(&entry.Seq); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userRef string) ([]Entry, error) {
	query := `
		SELECT id, user_ref, action, detail, occurred_at, seq
		FROM audit_entries
		WHERE user_ref = $1
		ORDER BY occurred_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userRef)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.UserRef, &action, &e.Detail, &e.OccurredAt, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) PseudonymizeUser(ctx context.Context, userRef, pseudonym string) error {
	query := `UPDATE audit_entries SET user_ref = $2 WHERE user_ref = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, userRef, pseudonym); err != nil {
		return fmt.Errorf("pseudonymize audit entries: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"seedfund/internal/investor"
	"seedfund/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists investors in postgres via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the store's DDL. Idempotent; called once at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS investors (
			id             TEXT PRIMARY KEY,
			legal_name     TEXT NOT NULL,
			email          TEXT NOT NULL UNIQUE,
			entity_type    TEXT NOT NULL,
			accreditation  TEXT NOT NULL,
			jurisdiction   TEXT NOT NULL,
			kyc_status     TEXT NOT NULL,
			aml_status     TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure investors schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, inv investor.Investor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO investors (id, legal_name, email, entity_type, accreditation, jurisdiction, kyc_status, aml_status, created_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			legal_name = EXCLUDED.legal_name,
			accreditation = EXCLUDED.accreditation,
			kyc_status = EXCLUDED.kyc_status,
			aml_status = EXCLUDED.aml_status`,
		inv.ID, inv.LegalName, inv.Email, inv.EntityType, inv.Accreditation,
		inv.Jurisdiction, inv.KYC, inv.AML, inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save investor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (investor.Investor, error) {
	var inv investor.Investor
	err := s.pool.QueryRow(ctx, `
		SELECT id, legal_name, email, entity_type, accreditation, jurisdiction, kyc_status, aml_status, created_at
		FROM investors WHERE id = $1`, id).Scan(
		&inv.ID, &inv.LegalName, &inv.Email, &inv.EntityType, &inv.Accreditation,
		&inv.Jurisdiction, &inv.KYC, &inv.AML, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return investor.Investor{}, sentinel.ErrNotFound
	}
	if err != nil {
		return investor.Investor{}, fmt.Errorf("find investor: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM investors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count investors: %w", err)
	}
	return count, nil
}

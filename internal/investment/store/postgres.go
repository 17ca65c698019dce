package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"seedfund/internal/investment"
	"seedfund/internal/treasury"
	"seedfund/pkg/platform/sentinel"
)

// PostgresStore persists investments via pgx. The frozen allocation is stored
// as JSONB with decimal-string amounts; money never round-trips through
// binary floating point.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS investments (
			transaction_id    TEXT PRIMARY KEY,
			investor_id       TEXT NOT NULL,
			rail              TEXT NOT NULL,
			amount_usd        NUMERIC(20,2) NOT NULL,
			method            TEXT,
			asset             TEXT,
			status            TEXT NOT NULL,
			allocation        JSONB NOT NULL,
			wire_instructions JSONB,
			charge_url        TEXT,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure investments schema: %w", err)
	}
	return nil
}

type allocationRow struct {
	Principal    string     `json:"principal"`
	Operating    string     `json:"operating"`
	Reserve      string     `json:"reserve"`
	MintQuantity string     `json:"mint_quantity"`
	Shares       []shareRow `json:"shares"`
}

type shareRow struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func encodeAllocation(a treasury.Allocation) ([]byte, error) {
	row := allocationRow{
		Principal:    a.Principal.String(),
		Operating:    a.Operating.String(),
		Reserve:      a.Reserve.String(),
		MintQuantity: a.MintQuantity.String(),
	}
	for _, s := range a.Shares {
		row.Shares = append(row.Shares, shareRow{Name: s.Name, Amount: s.Amount.String()})
	}
	return json.Marshal(row)
}

func decodeAllocation(data []byte) (treasury.Allocation, error) {
	var row allocationRow
	if err := json.Unmarshal(data, &row); err != nil {
		return treasury.Allocation{}, err
	}
	alloc := treasury.Allocation{}
	var err error
	if alloc.Principal, err = decimal.NewFromString(row.Principal); err != nil {
		return treasury.Allocation{}, err
	}
	if alloc.Operating, err = decimal.NewFromString(row.Operating); err != nil {
		return treasury.Allocation{}, err
	}
	if alloc.Reserve, err = decimal.NewFromString(row.Reserve); err != nil {
		return treasury.Allocation{}, err
	}
	if alloc.MintQuantity, err = decimal.NewFromString(row.MintQuantity); err != nil {
		return treasury.Allocation{}, err
	}
	for _, s := range row.Shares {
		amount, err := decimal.NewFromString(s.Amount)
		if err != nil {
			return treasury.Allocation{}, err
		}
		alloc.Shares = append(alloc.Shares, treasury.PlatformShare{Name: s.Name, Amount: amount})
	}
	return alloc, nil
}

func (s *PostgresStore) Save(ctx context.Context, inv investment.Investment) error {
	allocJSON, err := encodeAllocation(inv.Allocation)
	if err != nil {
		return fmt.Errorf("encode allocation: %w", err)
	}
	var wireJSON []byte
	if inv.WireInstructions != nil {
		if wireJSON, err = json.Marshal(inv.WireInstructions); err != nil {
			return fmt.Errorf("encode wire instructions: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO investments (transaction_id, investor_id, rail, amount_usd, method, asset, status, allocation, wire_instructions, charge_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (transaction_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		inv.TransactionID, inv.InvestorID, inv.Rail, inv.AmountUSD, inv.Method,
		inv.Asset, inv.Status, allocJSON, wireJSON, inv.ChargeURL, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save investment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, transactionID string) (investment.Investment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT transaction_id, investor_id, rail, amount_usd, method, asset, status, allocation, wire_instructions, charge_url, created_at, updated_at
		FROM investments WHERE transaction_id = $1`, transactionID)
	inv, err := scanInvestment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return investment.Investment{}, sentinel.ErrNotFound
	}
	if err != nil {
		return investment.Investment{}, fmt.Errorf("find investment: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]investment.Investment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, investor_id, rail, amount_usd, method, asset, status, allocation, wire_instructions, charge_url, created_at, updated_at
		FROM investments ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvestment(row pgx.Row) (investment.Investment, error) {
	var inv investment.Investment
	var amount decimal.Decimal
	var allocJSON []byte
	var wireJSON []byte
	err := row.Scan(&inv.TransactionID, &inv.InvestorID, &inv.Rail, &amount,
		&inv.Method, &inv.Asset, &inv.Status, &allocJSON, &wireJSON,
		&inv.ChargeURL, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, err
	}
	inv.AmountUSD = amount
	if inv.Allocation, err = decodeAllocation(allocJSON); err != nil {
		return investment.Investment{}, err
	}
	if len(wireJSON) > 0 {
		var wire investment.WireInstructions
		if err := json.Unmarshal(wireJSON, &wire); err != nil {
			return investment.Investment{}, err
		}
		inv.WireInstructions = &wire
	}
	return inv, nil
}

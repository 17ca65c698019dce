// Package adapters bridges the investor store onto the ports other modules
// consume.
package adapters

import (
	"context"

	"seedfund/internal/compliance"
	"seedfund/internal/investor"
)

type investorFinder interface {
	FindByID(ctx context.Context, id string) (investor.Investor, error)
}

// ComplianceSource exposes investor screening state as the read-only lookup
// the zero-trust verifier gates on. Store sentinels pass through untouched so
// the verifier can distinguish absent principals from backend failures.
type ComplianceSource struct {
	store investorFinder
}

func NewComplianceSource(store investorFinder) *ComplianceSource {
	return &ComplianceSource{store: store}
}

func (c *ComplianceSource) Lookup(ctx context.Context, investorID string) (compliance.Record, error) {
	inv, err := c.store.FindByID(ctx, investorID)
	if err != nil {
		return compliance.Record{}, err
	}
	return inv.ComplianceRecord(), nil
}

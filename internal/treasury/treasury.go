// Package treasury implements the deterministic allocation engine. It turns a
// validated contribution amount into a token-mint quantity plus a weighted
// split of the operating principal across the platform portfolio.
//
// Everything here is pure: no I/O, no clock, no shared state. Given identical
// inputs the engine produces identical outputs, which is what makes the split
// auditable.
package treasury

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBelowMinimum is returned when a contribution is under the configured
// minimum. Unlike authentication failures, the minimum itself is safe to
// disclose to callers.
var ErrBelowMinimum = errors.New("contribution below minimum")

// weightEpsilon bounds the accepted drift of the platform weight sum from 1.
var weightEpsilon = decimal.New(1, -6)

var one = decimal.NewFromInt(1)

// PlatformWeight binds a platform name to its share of operating funds.
// The slice order in Config is the deterministic allocation order; the last
// platform absorbs any rounding residual.
type PlatformWeight struct {
	Name   string
	Weight decimal.Decimal
}

// Config is the immutable allocation table. It is validated once at startup
// and passed by value, so a reload can only ever swap the whole table.
type Config struct {
	OperatingRatio      decimal.Decimal
	ReserveRatio        decimal.Decimal
	MinimumContribution decimal.Decimal
	Platforms           []PlatformWeight
}

// DefaultConfig returns the production allocation table: 90/10 operating vs.
// agent reserve, $10,000 minimum, and the seven-platform portfolio.
func DefaultConfig() Config {
	return Config{
		OperatingRatio:      decimal.RequireFromString("0.90"),
		ReserveRatio:        decimal.RequireFromString("0.10"),
		MinimumContribution: decimal.NewFromInt(10000),
		Platforms: []PlatformWeight{
			{Name: "aureon", Weight: decimal.RequireFromString("0.18")},
			{Name: "relian", Weight: decimal.RequireFromString("0.22")},
			{Name: "civium", Weight: decimal.RequireFromString("0.15")},
			{Name: "veyra", Weight: decimal.RequireFromString("0.15")},
			{Name: "podx", Weight: decimal.RequireFromString("0.10")},
			{Name: "symbion", Weight: decimal.RequireFromString("0.10")},
			{Name: "qawm", Weight: decimal.RequireFromString("0.10")},
		},
	}
}

// Validate enforces the configuration invariants. A violation is a fatal
// startup error; the process must refuse traffic rather than run with an
// inconsistent table.
func (c Config) Validate() error {
	if !c.OperatingRatio.Add(c.ReserveRatio).Equal(one) {
		return fmt.Errorf("operating ratio %s and reserve ratio %s must sum to exactly 1",
			c.OperatingRatio, c.ReserveRatio)
	}
	if c.OperatingRatio.IsNegative() || c.ReserveRatio.IsNegative() {
		return fmt.Errorf("ratios must be non-negative")
	}
	if !c.MinimumContribution.IsPositive() {
		return fmt.Errorf("minimum contribution must be positive, got %s", c.MinimumContribution)
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("platform weight table is empty")
	}

	seen := make(map[string]struct{}, len(c.Platforms))
	sum := decimal.Zero
	for _, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("platform with empty name in weight table")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate platform %q in weight table", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Weight.IsNegative() {
			return fmt.Errorf("platform %q has negative weight %s", p.Name, p.Weight)
		}
		sum = sum.Add(p.Weight)
	}
	if sum.Sub(one).Abs().GreaterThan(weightEpsilon) {
		return fmt.Errorf("platform weights sum to %s, want 1 within %s", sum, weightEpsilon)
	}
	return nil
}

// PlatformShare is one platform's slice of the operating amount.
type PlatformShare struct {
	Name   string
	Amount decimal.Decimal
}

// Allocation is the immutable result of splitting one contribution.
// Operating + Reserve reconstructs the principal exactly, and the shares sum
// to Operating exactly.
type Allocation struct {
	Principal decimal.Decimal
	Operating decimal.Decimal
	Reserve   decimal.Decimal
	// MintQuantity is the zUSDC quantity to mint, pegged 1:1 to the reserve.
	MintQuantity decimal.Decimal
	Shares       []PlatformShare
}

// Share returns the allocated amount for a platform by name.
func (a Allocation) Share(name string) (decimal.Decimal, bool) {
	for _, s := range a.Shares {
		if s.Name == name {
			return s.Amount, true
		}
	}
	return decimal.Decimal{}, false
}

// Allocate splits amount according to cfg. The reserve is computed first in
// exact decimal arithmetic and the operating amount is the remainder, so the
// two always reconstruct the principal. Platform shares are rounded to cents
// in table order; the final platform absorbs the residual so the shares sum
// to the operating amount with zero drift.
func Allocate(amount decimal.Decimal, cfg Config) (Allocation, error) {
	if amount.LessThan(cfg.MinimumContribution) {
		return Allocation{}, fmt.Errorf("%w: minimum is %s USD, got %s",
			ErrBelowMinimum, cfg.MinimumContribution, amount)
	}

	reserve := amount.Mul(cfg.ReserveRatio)
	operating := amount.Sub(reserve)

	shares := make([]PlatformShare, len(cfg.Platforms))
	allocated := decimal.Zero
	last := len(cfg.Platforms) - 1
	for i, p := range cfg.Platforms {
		var share decimal.Decimal
		if i == last {
			share = operating.Sub(allocated)
		} else {
			share = operating.Mul(p.Weight).Round(2)
			allocated = allocated.Add(share)
		}
		shares[i] = PlatformShare{Name: p.Name, Amount: share}
	}

	return Allocation{
		Principal:    amount,
		Operating:    operating,
		Reserve:      reserve,
		MintQuantity: reserve,
		Shares:       shares,
	}, nil
}

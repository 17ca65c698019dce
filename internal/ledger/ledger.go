// Package ledger records zUSDC mint instructions. On-chain execution is a
// downstream concern; this layer is the system of record for what should be
// minted and for whom.
package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Entry is one recorded mint instruction.
type Entry struct {
	TransactionID string
	InvestorID    string
	Quantity      decimal.Decimal
}

// Ledger accepts mint instructions for confirmed contributions.
type Ledger interface {
	Mint(ctx context.Context, entry Entry) error
}

// InMemoryLedger tracks mints in process, keeping a running total for the
// treasury stats surface.
type InMemoryLedger struct {
	mu      sync.RWMutex
	entries []Entry
	total   decimal.Decimal
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{total: decimal.Zero}
}

func (l *InMemoryLedger) Mint(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	l.total = l.total.Add(entry.Quantity)
	return nil
}

// TotalMinted returns the cumulative minted quantity.
func (l *InMemoryLedger) TotalMinted() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Entries returns a copy of all recorded mint instructions.
func (l *InMemoryLedger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry{}, l.entries...)
}

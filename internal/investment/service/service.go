package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"seedfund/internal/audit"
	"seedfund/internal/investment"
	"seedfund/internal/investment/metrics"
	"seedfund/internal/ledger"
	"seedfund/internal/treasury"
	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/sentinel"
)

type Store interface {
	Save(ctx context.Context, inv investment.Investment) error
	FindByID(ctx context.Context, transactionID string) (investment.Investment, error)
	List(ctx context.Context) ([]investment.Investment, error)
}

// ChargeCreator opens a hosted crypto payment page for a transaction and
// returns its URL.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, transactionID string, amountUSD decimal.Decimal, asset investment.CryptoAsset) (string, error)
}

// InvestorCounter reports how many investors have registered, for the public
// stats surface.
type InvestorCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service drives a contribution through its rail: initiation freezes the
// treasury split, the payment provider confirms asynchronously, and
// confirmation records the mint.
type Service struct {
	store     Store
	ledger    ledger.Ledger
	cfg       treasury.Config
	logger    *slog.Logger
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	charges   ChargeCreator
	investors InvestorCounter
	tracer    trace.Tracer
	target    decimal.Decimal
	now       func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithChargeCreator(c ChargeCreator) Option {
	return func(s *Service) { s.charges = c }
}

func WithInvestorCounter(c InvestorCounter) Option {
	return func(s *Service) { s.investors = c }
}

func WithFundingTarget(target decimal.Decimal) Option {
	return func(s *Service) { s.target = target }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, ldgr ledger.Ledger, cfg treasury.Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		ledger:  ldgr,
		cfg:     cfg,
		logger:  logger,
		charges: hostedCharges{},
		tracer:  otel.Tracer("seedfund/investment"),
		target:  decimal.NewFromInt(2_000_000),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hostedCharges is the default charge creator: it points at the hosted
// commerce page keyed by transaction id, which is where charges land when no
// API credentials are configured.
type hostedCharges struct{}

func (hostedCharges) CreateCharge(_ context.Context, transactionID string, _ decimal.Decimal, _ investment.CryptoAsset) (string, error) {
	return "https://commerce.coinbase.com/charges/" + transactionID, nil
}

// InitiateFiat opens a fiat contribution. Wire transfers get instructions
// with a reference tying the inbound wire to the transaction; ACH is handed
// to the bank rail and confirmed later by webhook.
func (s *Service) InitiateFiat(ctx context.Context, investorID string, amountUSD decimal.Decimal, method investment.FiatMethod) (investment.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.InitiateFiat",
		trace.WithAttributes(attribute.String("rail", string(investment.RailFiat))))
	defer span.End()

	if method != investment.MethodACH && method != investment.MethodWire {
		return investment.Investment{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unsupported fiat method %q", method))
	}

	inv, err := s.initiate(ctx, investorID, amountUSD, investment.RailFiat)
	if err != nil {
		return investment.Investment{}, err
	}
	inv.Method = method
	if method == investment.MethodWire {
		inv.WireInstructions = &investment.WireInstructions{
			BankName:      "Wells Fargo Bank, N.A.",
			RoutingNumber: "121000248",
			AccountNumber: "XXXX-MASKED-XXXX",
			AccountName:   "Zuup Innovation Labs LLC",
			Reference:     "ZUUP-SEED-" + inv.TransactionID[:8],
			SwiftCode:     "WFBIUS6S",
		}
	}

	return s.finishInitiation(ctx, inv)
}

// InitiateCrypto opens a crypto contribution and creates the hosted charge
// the investor pays into.
func (s *Service) InitiateCrypto(ctx context.Context, investorID string, amountUSD decimal.Decimal, asset investment.CryptoAsset) (investment.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.InitiateCrypto",
		trace.WithAttributes(attribute.String("rail", string(investment.RailCrypto))))
	defer span.End()

	switch asset {
	case investment.AssetUSDC, investment.AssetETH, investment.AssetBTC:
	default:
		return investment.Investment{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unsupported crypto asset %q", asset))
	}

	inv, err := s.initiate(ctx, investorID, amountUSD, investment.RailCrypto)
	if err != nil {
		return investment.Investment{}, err
	}
	inv.Asset = asset

	chargeURL, err := s.charges.CreateCharge(ctx, inv.TransactionID, amountUSD, asset)
	if err != nil {
		return investment.Investment{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create charge", err)
	}
	inv.ChargeURL = chargeURL

	return s.finishInitiation(ctx, inv)
}

func (s *Service) initiate(ctx context.Context, investorID string, amountUSD decimal.Decimal, rail investment.PaymentRail) (investment.Investment, error) {
	alloc, err := treasury.Allocate(amountUSD, s.cfg)
	if err != nil {
		if errors.Is(err, treasury.ErrBelowMinimum) {
			return investment.Investment{}, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("minimum contribution is %s USD", s.cfg.MinimumContribution))
		}
		return investment.Investment{}, dErrors.Wrap(dErrors.CodeInternal, "allocation failed", err)
	}

	now := s.now()
	return investment.Investment{
		TransactionID: uuid.NewString(),
		InvestorID:    investorID,
		Rail:          rail,
		AmountUSD:     amountUSD,
		Status:        investment.StatusPending,
		Allocation:    alloc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) finishInitiation(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	if err := s.store.Save(ctx, inv); err != nil {
		return investment.Investment{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save investment", err)
	}

	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:        audit.ActionInvestmentInitiated,
			InvestorID:    inv.InvestorID,
			TransactionID: inv.TransactionID,
			Rail:          string(inv.Rail),
			Amount:        inv.AmountUSD.String(),
		})
	}
	if s.metrics != nil {
		s.metrics.IncrementInitiated(string(inv.Rail))
	}
	s.logger.InfoContext(ctx, "investment initiated",
		"transaction_id", inv.TransactionID,
		"investor_id", inv.InvestorID,
		"rail", string(inv.Rail),
		"amount_usd", inv.AmountUSD.String(),
	)
	return inv, nil
}

// Status returns the investment if it belongs to the caller. A transaction
// owned by someone else reads as not found, so transaction ids cannot be
// probed across investors.
func (s *Service) Status(ctx context.Context, investorID, transactionID string) (investment.Investment, error) {
	inv, err := s.store.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return investment.Investment{}, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return investment.Investment{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load investment", err)
	}
	if inv.InvestorID != investorID {
		return investment.Investment{}, dErrors.New(dErrors.CodeNotFound, "transaction not found")
	}
	return inv, nil
}

// ConfirmPayment settles a pending transaction: flips it to confirmed and
// records the reserve mint. Confirming an already-confirmed transaction is a
// no-op so webhook redelivery cannot double-mint.
func (s *Service) ConfirmPayment(ctx context.Context, transactionID string) error {
	ctx, span := s.tracer.Start(ctx, "investment.ConfirmPayment")
	defer span.End()

	inv, err := s.store.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load investment", err)
	}

	switch inv.Status {
	case investment.StatusConfirmed:
		return nil
	case investment.StatusFailed:
		return dErrors.New(dErrors.CodeConflict, "transaction already failed")
	}

	if err := s.ledger.Mint(ctx, ledger.Entry{
		TransactionID: inv.TransactionID,
		InvestorID:    inv.InvestorID,
		Quantity:      inv.Allocation.MintQuantity,
	}); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to record mint", err)
	}

	inv.Status = investment.StatusConfirmed
	inv.UpdatedAt = s.now()
	if err := s.store.Save(ctx, inv); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to update investment", err)
	}

	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:        audit.ActionPaymentConfirmed,
			InvestorID:    inv.InvestorID,
			TransactionID: inv.TransactionID,
			Rail:          string(inv.Rail),
			Amount:        inv.AmountUSD.String(),
		})
		s.audit.Emit(ctx, audit.Event{
			Action:        audit.ActionTokensMinted,
			InvestorID:    inv.InvestorID,
			TransactionID: inv.TransactionID,
			Amount:        inv.Allocation.MintQuantity.String(),
		})
	}
	if s.metrics != nil {
		s.metrics.IncrementConfirmed(string(inv.Rail),
			inv.AmountUSD.InexactFloat64(), inv.Allocation.MintQuantity.InexactFloat64())
	}
	s.logger.InfoContext(ctx, "payment confirmed",
		"transaction_id", inv.TransactionID,
		"investor_id", inv.InvestorID,
		"minted", inv.Allocation.MintQuantity.String(),
	)
	return nil
}

// FailPayment marks a pending transaction failed. Confirmed transactions are
// final and cannot be failed afterwards.
func (s *Service) FailPayment(ctx context.Context, transactionID, reason string) error {
	inv, err := s.store.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load investment", err)
	}
	if inv.Status == investment.StatusConfirmed {
		return dErrors.New(dErrors.CodeConflict, "transaction already confirmed")
	}
	if inv.Status == investment.StatusFailed {
		return nil
	}

	inv.Status = investment.StatusFailed
	inv.UpdatedAt = s.now()
	if err := s.store.Save(ctx, inv); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to update investment", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementFailed()
	}
	s.logger.WarnContext(ctx, "payment failed",
		"transaction_id", inv.TransactionID,
		"reason", reason,
	)
	return nil
}

// PlatformStat is one platform's running balance plus its configured weight.
type PlatformStat struct {
	Balance decimal.Decimal
	Weight  decimal.Decimal
}

// Stats is the public treasury snapshot. Only confirmed contributions count.
type Stats struct {
	TotalRaised   decimal.Decimal
	Target        decimal.Decimal
	InvestorCount int
	TokensMinted  decimal.Decimal
	Platforms     map[string]PlatformStat
	UpdatedAt     time.Time
}

// Stats aggregates confirmed contributions into the public treasury snapshot.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(dErrors.CodeInternal, "failed to list investments", err)
	}

	stats := Stats{
		TotalRaised:  decimal.Zero,
		Target:       s.target,
		TokensMinted: decimal.Zero,
		Platforms:    make(map[string]PlatformStat, len(s.cfg.Platforms)),
		UpdatedAt:    s.now(),
	}
	for _, p := range s.cfg.Platforms {
		stats.Platforms[p.Name] = PlatformStat{Balance: decimal.Zero, Weight: p.Weight}
	}

	for _, inv := range all {
		if inv.Status != investment.StatusConfirmed {
			continue
		}
		stats.TotalRaised = stats.TotalRaised.Add(inv.AmountUSD)
		stats.TokensMinted = stats.TokensMinted.Add(inv.Allocation.MintQuantity)
		for _, share := range inv.Allocation.Shares {
			ps := stats.Platforms[share.Name]
			ps.Balance = ps.Balance.Add(share.Amount)
			stats.Platforms[share.Name] = ps
		}
	}

	if s.investors != nil {
		count, err := s.investors.Count(ctx)
		if err != nil {
			return Stats{}, dErrors.Wrap(dErrors.CodeInternal, "failed to count investors", err)
		}
		stats.InvestorCount = count
	}
	return stats, nil
}

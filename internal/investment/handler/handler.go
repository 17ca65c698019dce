package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"seedfund/internal/investment"
	"seedfund/internal/investment/service"
	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/httputil"
	"seedfund/pkg/requestcontext"
)

type Service interface {
	InitiateFiat(ctx context.Context, investorID string, amountUSD decimal.Decimal, method investment.FiatMethod) (investment.Investment, error)
	InitiateCrypto(ctx context.Context, investorID string, amountUSD decimal.Decimal, asset investment.CryptoAsset) (investment.Investment, error)
	Status(ctx context.Context, investorID, transactionID string) (investment.Investment, error)
	Stats(ctx context.Context) (service.Stats, error)
}

// Handler exposes the investment rails. Routes registered via Register sit
// behind the zero-trust middleware; RegisterPublic routes do not.
type Handler struct {
	service  Service
	logger   *slog.Logger
	validate *validator.Validate
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the investor-facing routes. These require a verified
// principal in the request context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/invest/fiat", h.HandleInvestFiat)
	r.Post("/api/v1/invest/crypto", h.HandleInvestCrypto)
	r.Get("/api/v1/invest/{transactionID}/status", h.HandleStatus)
}

// RegisterPublic mounts the unauthenticated treasury surface.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/v1/treasury/stats", h.HandleTreasuryStats)
}

type fiatInvestRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method" validate:"required,oneof=ach wire"`
	PlaidPublicToken string          `json:"plaid_public_token" validate:"omitempty,max=256"`
}

type cryptoInvestRequest struct {
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Asset     string          `json:"asset" validate:"required,oneof=usdc eth btc"`
}

type allocationResponse struct {
	OperatingAmount    decimal.Decimal            `json:"operating_amount"`
	AgentReserveAmount decimal.Decimal            `json:"agent_reserve_amount"`
	Distribution       map[string]decimal.Decimal `json:"distribution"`
}

type investResponse struct {
	TransactionID    string                       `json:"transaction_id"`
	Rail             string                       `json:"rail"`
	AmountUSD        decimal.Decimal              `json:"amount_usd"`
	Status           string                       `json:"status"`
	ZUSDCToMint      decimal.Decimal              `json:"zusdc_to_mint"`
	Allocation       allocationResponse           `json:"allocation"`
	WireInstructions *investment.WireInstructions `json:"wire_instructions,omitempty"`
	ChargeURL        string                       `json:"coinbase_charge_url,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
}

func toInvestResponse(inv investment.Investment) investResponse {
	dist := make(map[string]decimal.Decimal, len(inv.Allocation.Shares))
	for _, s := range inv.Allocation.Shares {
		dist[s.Name] = s.Amount
	}
	return investResponse{
		TransactionID: inv.TransactionID,
		Rail:          string(inv.Rail),
		AmountUSD:     inv.AmountUSD,
		Status:        string(inv.Status),
		ZUSDCToMint:   inv.Allocation.MintQuantity,
		Allocation: allocationResponse{
			OperatingAmount:    inv.Allocation.Operating,
			AgentReserveAmount: inv.Allocation.Reserve,
			Distribution:       dist,
		},
		WireInstructions: inv.WireInstructions,
		ChargeURL:        inv.ChargeURL,
		CreatedAt:        inv.CreatedAt,
	}
}

func (h *Handler) HandleInvestFiat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[fiatInvestRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid investment fields"))
		return
	}

	inv, err := h.service.InitiateFiat(ctx, requestcontext.InvestorID(ctx), req.Amount, investment.FiatMethod(req.Method))
	if err != nil {
		h.logError(ctx, "fiat investment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toInvestResponse(inv))
}

func (h *Handler) HandleInvestCrypto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[cryptoInvestRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid investment fields"))
		return
	}

	inv, err := h.service.InitiateCrypto(ctx, requestcontext.InvestorID(ctx), req.AmountUSD, investment.CryptoAsset(req.Asset))
	if err != nil {
		h.logError(ctx, "crypto investment failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toInvestResponse(inv))
}

type statusResponse struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	ZUSDCMinted   decimal.Decimal `json:"zusdc_minted"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := h.service.Status(ctx, requestcontext.InvestorID(ctx), chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	minted := decimal.Zero
	if inv.Status == investment.StatusConfirmed {
		minted = inv.Allocation.MintQuantity
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		TransactionID: inv.TransactionID,
		Status:        string(inv.Status),
		ZUSDCMinted:   minted,
		UpdatedAt:     inv.UpdatedAt,
	})
}

type platformStatResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Weight  decimal.Decimal `json:"weight"`
}

type statsResponse struct {
	TotalRaised   decimal.Decimal                 `json:"total_raised"`
	Target        decimal.Decimal                 `json:"target"`
	InvestorCount int                             `json:"investor_count"`
	ZUSDCMinted   decimal.Decimal                 `json:"zusdc_minted"`
	Platforms     map[string]platformStatResponse `json:"platforms"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

func (h *Handler) HandleTreasuryStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logError(ctx, "treasury stats failed", err)
		httputil.WriteError(w, err)
		return
	}

	platforms := make(map[string]platformStatResponse, len(stats.Platforms))
	for name, p := range stats.Platforms {
		platforms[name] = platformStatResponse{Balance: p.Balance, Weight: p.Weight}
	}
	httputil.WriteJSON(w, http.StatusOK, statsResponse{
		TotalRaised:   stats.TotalRaised,
		Target:        stats.Target,
		InvestorCount: stats.InvestorCount,
		ZUSDCMinted:   stats.TokensMinted,
		Platforms:     platforms,
		UpdatedAt:     stats.UpdatedAt,
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"investor_id", requestcontext.InvestorID(ctx),
		"error", err,
	)
}

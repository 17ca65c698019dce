package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"seedfund/internal/investor"
	"seedfund/internal/investor/service"
	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/httputil"
	"seedfund/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (service.Registration, error)
}

// Handler wires investor onboarding endpoints to the service. Field-shape
// validation happens here once; services only see well-formed input.
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

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/investors/register", h.HandleRegister)
}

type registerRequest struct {
	LegalName     string `json:"legal_name" validate:"required,min=2,max=200"`
	Email         string `json:"email" validate:"required,email"`
	EntityType    string `json:"entity_type" validate:"omitempty,oneof=individual entity"`
	Accreditation string `json:"accreditation_status" validate:"omitempty,oneof=accredited qualified pending"`
	Jurisdiction  string `json:"jurisdiction" validate:"omitempty,len=2,alpha"`
}

type registerResponse struct {
	InvestorID string `json:"investor_id"`
	Status     string `json:"status"`
	KYCURL     string `json:"kyc_url"`
	Message    string `json:"message"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[registerRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid registration fields"))
		return
	}

	registration, err := h.service.Register(ctx, service.RegisterRequest{
		LegalName:     req.LegalName,
		Email:         req.Email,
		EntityType:    investor.EntityType(req.EntityType),
		Accreditation: investor.AccreditationStatus(req.Accreditation),
		Jurisdiction:  req.Jurisdiction,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "investor registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		InvestorID: registration.InvestorID,
		Status:     registration.Status,
		KYCURL:     registration.KYCURL,
		Message:    "Please complete identity verification to proceed",
	})
}

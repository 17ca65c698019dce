package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"seedfund/internal/audit"
	"seedfund/internal/compliance"
	"seedfund/internal/investor"
	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/sentinel"
)

type Store interface {
	Save(ctx context.Context, inv investor.Investor) error
	FindByID(ctx context.Context, id string) (investor.Investor, error)
	Count(ctx context.Context) (int, error)
}

// Service handles investor onboarding. Registration only creates the record
// and points the investor at verification; KYC/AML verdicts arrive later via
// screening callbacks.
type Service struct {
	store         Store
	logger        *slog.Logger
	audit         *audit.Publisher
	verifyBaseURL string
	now           func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithVerifyBaseURL(url string) Option {
	return func(s *Service) { s.verifyBaseURL = url }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		logger:        logger,
		verifyBaseURL: "https://zblackhole.io",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterRequest struct {
	LegalName     string
	Email         string
	EntityType    investor.EntityType
	Accreditation investor.AccreditationStatus
	Jurisdiction  string
}

type Registration struct {
	InvestorID string
	Status     string
	KYCURL     string
}

// Register creates the investor in pending screening state and returns the
// verification pointer. The id is derived from email and registration time so
// it is opaque but reproducible in the audit trail.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Registration, error) {
	if req.EntityType == "" {
		req.EntityType = investor.EntityIndividual
	}
	if req.Accreditation == "" {
		req.Accreditation = investor.AccreditationPending
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = "US"
	}

	now := s.now()
	id := deriveInvestorID(req.Email, now)

	inv := investor.Investor{
		ID:            id,
		LegalName:     req.LegalName,
		Email:         req.Email,
		EntityType:    req.EntityType,
		Accreditation: req.Accreditation,
		Jurisdiction:  req.Jurisdiction,
		KYC:           compliance.KYCPending,
		AML:           compliance.AMLUnderReview,
		CreatedAt:     now,
	}

	if err := s.store.Save(ctx, inv); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Registration{}, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return Registration{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save investor", err)
	}

	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:     audit.ActionInvestorRegistered,
			InvestorID: id,
		})
	}
	s.logger.InfoContext(ctx, "investor registered",
		"investor_id", id,
		"entity_type", string(req.EntityType),
		"jurisdiction", req.Jurisdiction,
	)

	return Registration{
		InvestorID: id,
		Status:     "pending_verification",
		KYCURL:     s.verifyBaseURL + "/verify/" + id,
	}, nil
}

// UpdateScreening records a screening verdict from the KYC/AML vendor
// callback.
func (s *Service) UpdateScreening(ctx context.Context, investorID string, kyc compliance.KYCStatus, aml compliance.AMLStatus) error {
	inv, err := s.store.FindByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "investor not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load investor", err)
	}
	inv.KYC = kyc
	inv.AML = aml
	if err := s.store.Save(ctx, inv); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to update screening", err)
	}
	return nil
}

func deriveInvestorID(email string, at time.Time) string {
	sum := sha256.Sum256([]byte(email + ":" + at.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:32]
}

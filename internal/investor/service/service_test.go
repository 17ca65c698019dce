package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfund/internal/compliance"
	"seedfund/internal/investor"
	"seedfund/internal/investor/store"
	dErrors "seedfund/pkg/domain-errors"
)

func newTestService(opts ...Option) (*Service, *store.InMemoryStore) {
	s := store.NewInMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	return New(s, logger, opts...), s
}

func TestRegisterCreatesPendingInvestor(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{
		LegalName: "Ada Example",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, reg.InvestorID, 32)
	assert.Equal(t, "pending_verification", reg.Status)
	assert.Contains(t, reg.KYCURL, "/verify/"+reg.InvestorID)

	inv, err := st.FindByID(ctx, reg.InvestorID)
	require.NoError(t, err)
	assert.Equal(t, compliance.KYCPending, inv.KYC)
	assert.Equal(t, compliance.AMLUnderReview, inv.AML)
	assert.Equal(t, investor.EntityIndividual, inv.EntityType)
	assert.Equal(t, investor.AccreditationPending, inv.Accreditation)
	assert.Equal(t, "US", inv.Jurisdiction)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{LegalName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{LegalName: "Ada Again", Email: "ada@example.com"})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestRegisterIDDerivation(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(WithClock(func() time.Time { return fixed }))

	reg, err := svc.Register(context.Background(), RegisterRequest{LegalName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, deriveInvestorID("ada@example.com", fixed), reg.InvestorID)
}

func TestUpdateScreening(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{LegalName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateScreening(ctx, reg.InvestorID, compliance.KYCVerified, compliance.AMLCleared))

	inv, err := st.FindByID(ctx, reg.InvestorID)
	require.NoError(t, err)
	assert.Equal(t, compliance.KYCVerified, inv.KYC)
	assert.Equal(t, compliance.AMLCleared, inv.AML)
}

func TestUpdateScreeningUnknownInvestor(t *testing.T) {
	svc, _ := newTestService()
	err := svc.UpdateScreening(context.Background(), "ghost", compliance.KYCVerified, compliance.AMLCleared)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

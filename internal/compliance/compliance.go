// Package compliance defines the externally sourced screening verdict the
// authenticator gates on. Screening itself (KYC vendors, AML providers) is a
// collaborator concern; this package only models the result.
package compliance

import "context"

// KYCStatus is the identity-verification verdict for an investor.
type KYCStatus string

const (
	KYCVerified KYCStatus = "verified"
	KYCPending  KYCStatus = "pending"
	KYCRejected KYCStatus = "rejected"
)

// AMLStatus is the anti-money-laundering screening verdict.
type AMLStatus string

const (
	AMLCleared     AMLStatus = "cleared"
	AMLFlagged     AMLStatus = "flagged"
	AMLUnderReview AMLStatus = "under_review"
)

// Record is a read-only snapshot of an investor's screening state. Only
// kyc=verified with aml != flagged may transact.
type Record struct {
	InvestorID    string
	KYC           KYCStatus
	AML           AMLStatus
	Accreditation string
}

// Cleared reports whether the record permits privileged operations.
func (r Record) Cleared() bool {
	return r.KYC == KYCVerified && r.AML != AMLFlagged
}

// Source looks up the screening record for a verified subject. Implementations
// return sentinel.ErrNotFound (possibly wrapped) when no record exists.
type Source interface {
	Lookup(ctx context.Context, investorID string) (Record, error)
}

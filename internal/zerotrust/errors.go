package zerotrust

import (
	"fmt"

	dErrors "seedfund/pkg/domain-errors"
)

// Kind identifies which verification gate rejected a request. Kinds stay
// distinguishable internally for logging and metrics; the caller-facing
// surface collapses them so failures reveal nothing about which gate tripped.
type Kind string

const (
	KindRateLimited             Kind = "rate_limited"
	KindMalformedCredential     Kind = "malformed_credential"
	KindInvalidCredential       Kind = "invalid_credential"
	KindCredentialExpired       Kind = "credential_expired"
	KindMalformedTimestamp      Kind = "malformed_timestamp"
	KindStaleRequest            Kind = "stale_request"
	KindSignatureMismatch       Kind = "signature_mismatch"
	KindUnknownPrincipal        Kind = "unknown_principal"
	KindComplianceIncomplete    Kind = "compliance_incomplete"
	KindComplianceBlocked       Kind = "compliance_blocked"
	KindComplianceLookupTimeout Kind = "compliance_lookup_timeout"
)

// AuthError is the typed rejection from the verification pipeline.
type AuthError struct {
	Kind   Kind
	detail string
}

func newAuthError(kind Kind, detail string) *AuthError {
	return &AuthError{Kind: kind, detail: detail}
}

func (e *AuthError) Error() string {
	if e.detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.detail)
}

// Domain collapses the internal kind onto the external error surface.
// Credential, freshness, and integrity failures all map to one generic
// unauthorized error; compliance failures map to forbidden, with only the
// actionable incomplete-verification case surfaced distinctly.
func (e *AuthError) Domain() *dErrors.Error {
	switch e.Kind {
	case KindRateLimited:
		return dErrors.New(dErrors.CodeRateLimited, "too many requests")
	case KindComplianceIncomplete:
		return dErrors.New(dErrors.CodeForbidden, "identity verification required")
	case KindUnknownPrincipal, KindComplianceBlocked, KindComplianceLookupTimeout:
		return dErrors.New(dErrors.CodeForbidden, "account not permitted to transact")
	default:
		return dErrors.New(dErrors.CodeUnauthorized, "request verification failed")
	}
}

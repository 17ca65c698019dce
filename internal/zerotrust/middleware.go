package zerotrust

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"seedfund/pkg/platform/httputil"
	"seedfund/pkg/requestcontext"
)

// Header names for the verification inputs.
const (
	HeaderSignature = "X-Request-Signature"
	HeaderTimestamp = "X-Timestamp"
)

type principalKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, or nil when the request
// did not pass through the verification middleware.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Middleware gates a route on full zero-trust verification. The raw body is
// captured before verification and restored afterwards so handlers decode the
// exact bytes the client signed.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				httputil.WriteError(w, newAuthError(KindSignatureMismatch, "unreadable body").Domain())
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			principal, err := v.Verify(r.Context(), Input{
				Authorization: r.Header.Get("Authorization"),
				Signature:     r.Header.Get(HeaderSignature),
				Timestamp:     r.Header.Get(HeaderTimestamp),
				Body:          body,
			})
			if err != nil {
				var authErr *AuthError
				if errors.As(err, &authErr) {
					httputil.WriteError(w, authErr.Domain())
				} else {
					httputil.WriteError(w, err)
				}
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = requestcontext.WithInvestorID(ctx, principal.InvestorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

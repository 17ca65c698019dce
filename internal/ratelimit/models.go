// Package ratelimit provides the abuse-control layer shared by the HTTP
// surface and the zero-trust verifier. Policy is sliding-window per key with
// per-endpoint-class limits.
package ratelimit

import "time"

// EndpointClass categorizes endpoints for differentiated limits.
type EndpointClass string

const (
	// ClassRegister: investor onboarding, the cheapest unauthenticated write.
	ClassRegister EndpointClass = "register"
	// ClassInvest: privileged funding mutations.
	ClassInvest EndpointClass = "invest"
	// ClassRead: status and stats reads.
	ClassRead EndpointClass = "read"
	// ClassWebhook: processor callbacks.
	ClassWebhook EndpointClass = "webhook"
)

// Limit is the policy for one endpoint class.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits is the shipped policy; operators override via config.
func DefaultLimits() map[EndpointClass]Limit {
	return map[EndpointClass]Limit{
		ClassRegister: {Requests: 10, Window: time.Minute},
		ClassInvest:   {Requests: 30, Window: time.Minute},
		ClassRead:     {Requests: 100, Window: time.Minute},
		ClassWebhook:  {Requests: 120, Window: time.Minute},
	}
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

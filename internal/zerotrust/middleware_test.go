package zerotrust

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfund/internal/compliance"
	"seedfund/pkg/requestcontext"
)

func TestMiddlewarePassesPrincipalAndBody(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"amount":"10000.00"}`)
	in := f.signedInput(t, "inv-1", body)

	var gotPrincipal *Principal
	var gotBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = PrincipalFrom(r.Context())
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "inv-1", requestcontext.InvestorID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invest/fiat", bytes.NewReader(body))
	req.Header.Set("Authorization", in.Authorization)
	req.Header.Set(HeaderSignature, in.Signature)
	req.Header.Set(HeaderTimestamp, in.Timestamp)
	rec := httptest.NewRecorder()

	Middleware(f.verifier)(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPrincipal)
	assert.Equal(t, "inv-1", gotPrincipal.InvestorID)
	assert.Equal(t, body, gotBody, "handler must see the exact signed bytes")
}

func TestMiddlewareRejectsTamperedBody(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"amount":"10000.00"}`)
	in := f.signedInput(t, "inv-1", body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invest/fiat", bytes.NewReader([]byte(`{"amount":"99999.00"}`)))
	req.Header.Set("Authorization", in.Authorization)
	req.Header.Set(HeaderSignature, in.Signature)
	req.Header.Set(HeaderTimestamp, in.Timestamp)
	rec := httptest.NewRecorder()

	called := false
	Middleware(f.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	assert.False(t, called, "handler must not run on integrity failure")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "unauthorized", envelope["error"])
}

func TestMiddlewareRejectsIncompleteCompliance(t *testing.T) {
	f := newFixture(t)
	f.source.records["inv-1"] = compliance.Record{
		InvestorID: "inv-1", KYC: compliance.KYCPending, AML: compliance.AMLCleared,
	}
	body := []byte(`{}`)
	in := f.signedInput(t, "inv-1", body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invest/fiat", bytes.NewReader(body))
	req.Header.Set("Authorization", in.Authorization)
	req.Header.Set(HeaderSignature, in.Signature)
	req.Header.Set(HeaderTimestamp, in.Timestamp)
	rec := httptest.NewRecorder()

	Middleware(f.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var envelope map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "identity verification required", envelope["error_description"])
}

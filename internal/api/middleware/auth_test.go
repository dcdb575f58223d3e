package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/ghl-gateway/internal/api/middleware"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
)

const (
	testSecret     = "test-secret-key-32-chars-min!!!"
	testCredential = "pit-1234567890abcdef"
	testLocation   = "loc-123"
)

// ===== HELPERS =====

func newIssuer(t *testing.T, opts ...session.Option) *session.Issuer {
	t.Helper()
	iss, err := session.NewIssuer(testSecret, opts...)
	require.NoError(t, err)
	return iss
}

// nextHandler returns an http.Handler that sets called=true and records the context.
func nextHandler(called *bool, capturedCtx *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if capturedCtx != nil {
			*capturedCtx = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, iss *session.Issuer, req *http.Request) (*httptest.ResponseRecorder, bool, context.Context) {
	t.Helper()
	called := false
	var ctx context.Context
	h := middleware.Authenticate(auth.NewAuthenticator(iss), nil)(nextHandler(&called, &ctx))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, called, ctx
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

// ===== TESTS: NO MATERIAL =====

func TestAuthenticate_NoCredentials(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	rr, called, _ := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called, "next handler should NOT be called without credentials")
	body := decodeBody(t, rr)
	assert.Equal(t, "authentication_required", body["kind"])
	assert.Len(t, body["methods"], 3)
}

func TestAuthenticate_InvalidSessionFallsThroughToAuthRequired(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set(auth.HeaderSessionToken, "not-a-jwt")
	rr, called, _ := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}

// ===== TESTS: MALFORMED =====

func TestAuthenticate_MalformedAPIKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set(auth.HeaderAPIKey, "sk-live-1234567890")
	rr, called, _ := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, called, "next handler should NOT be called for a malformed key")
	assert.Equal(t, "malformed_credential", decodeBody(t, rr)["kind"])
}

func TestAuthenticate_ShortBearer(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set("Authorization", "Bearer pit-1")
	rr, _, _ := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "API key appears to be too short", decodeBody(t, rr)["error"])
}

// ===== TESTS: AUTHENTICATED =====

func TestAuthenticate_SessionTokenInjectsIdentity(t *testing.T) {
	t.Parallel()

	iss := newIssuer(t)
	token, _, err := iss.Issue(testLocation, testCredential)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set(auth.HeaderSessionToken, token)
	rr, called, ctx := serve(t, iss, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
	id, ok := ctxkeys.IdentityFrom(ctx)
	require.True(t, ok, "identity not injected")
	assert.Equal(t, auth.MethodSessionToken, id.Method)
	assert.Equal(t, testLocation, id.LocationID)
	assert.Empty(t, id.Credential, "session identity must not carry the credential")
}

func TestAuthenticate_ExpiredSessionWithAPIKeyUsesAPIKey(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-48 * time.Hour)
	old := newIssuer(t, session.WithClock(func() time.Time { return past }))
	token, _, err := old.Issue(testLocation, testCredential)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set(auth.HeaderSessionToken, token)
	req.Header.Set(auth.HeaderAPIKey, testCredential)
	rr, called, ctx := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
	id, _ := ctxkeys.IdentityFrom(ctx)
	assert.Equal(t, auth.MethodAPIKey, id.Method)
	assert.Equal(t, testCredential, id.Credential)
}

func TestAuthenticate_BearerCredential(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	req.Header.Set("Authorization", "Bearer "+testCredential)
	rr, called, ctx := serve(t, newIssuer(t), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
	id, _ := ctxkeys.IdentityFrom(ctx)
	assert.Equal(t, auth.MethodBearer, id.Method)
	assert.NotEmpty(t, id.CredentialFingerprint)
	assert.NotEqual(t, testCredential, id.CredentialFingerprint)
}

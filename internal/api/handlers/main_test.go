package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
)

const (
	testSecret     = "test-secret-key-32-chars-min!!!"
	testCredential = "pit-1234567890abcdef"
	testLocation   = "loc-123"
)

// ===== TEST HELPERS =====

func mustRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.LoadDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func mustIssuer(t *testing.T) *session.Issuer {
	t.Helper()
	iss, err := session.NewIssuer(testSecret)
	require.NoError(t, err)
	return iss
}

// route mounts h on a fresh chi router so URL params resolve.
func route(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	return r
}

func withIdentity(req *http.Request, id auth.Identity) *http.Request {
	return req.WithContext(ctxkeys.WithIdentity(req.Context(), id))
}

func rawIdentity(iss *session.Issuer) auth.Identity {
	return auth.Identity{
		Method:                auth.MethodAPIKey,
		Credential:            testCredential,
		CredentialFingerprint: iss.Fingerprint(testCredential),
	}
}

func sessionIdentity(iss *session.Issuer) auth.Identity {
	return auth.Identity{
		Method:                auth.MethodSessionToken,
		LocationID:            testLocation,
		CredentialFingerprint: iss.Fingerprint(testCredential),
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body=%s", rr.Body.String())
	return body
}

// vendorFake stands in for the LeadConnector APIs and counts every call.
type vendorFake struct {
	mu sync.Mutex

	status  int
	body    []byte
	err     error
	calls   int
	lastLoc string
	lastCrd string
	params  map[string]any
}

func (f *vendorFake) respond() (*ghl.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &ghl.Response{Status: status, Header: http.Header{}, Body: f.body}, nil
}

func (f *vendorFake) CallTool(_ context.Context, _, credential, locationID string, params map[string]any) (*ghl.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCrd, f.lastLoc, f.params = credential, locationID, params
	return f.respond()
}

func (f *vendorFake) Ping(_ context.Context, credential, locationID string) (*ghl.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCrd, f.lastLoc = credential, locationID
	return f.respond()
}

func (f *vendorFake) GetLocation(_ context.Context, credential, locationID string) (*ghl.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCrd, f.lastLoc = credential, locationID
	return f.respond()
}

func (f *vendorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

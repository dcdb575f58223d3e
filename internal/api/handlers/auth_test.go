package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
)

type stubSessions struct {
	validateErr error
	refreshErr  error
	gotKey      string
	gotLoc      string
}

func (s *stubSessions) Validate(_ context.Context, credential, locationID string) (*auth.Grant, error) {
	s.gotKey, s.gotLoc = credential, locationID
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return &auth.Grant{SessionToken: "tok", LocationID: locationID, ExpiresIn: session.ExpiresIn(session.DefaultTTL)}, nil
}

func (s *stubSessions) Refresh(token string) (*auth.Grant, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &auth.Grant{SessionToken: token + "-new", LocationID: testLocation, ExpiresIn: session.ExpiresIn(session.DefaultTTL)}, nil
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/x", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestAuthHandler_Validate_MissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"no api key", `{"locationId":"loc-1"}`, "API key is required"},
		{"no location", `{"apiKey":"pit-1234567890"}`, "Location ID is required"},
		{"empty body", ``, "API key is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			stub := &stubSessions{}
			rr := postJSON(NewAuthHandler(stub).Validate, tc.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, tc.want, body["error"])
			assert.Equal(t, false, body["valid"])
			assert.Empty(t, stub.gotKey, "service must not be called")
		})
	}
}

func TestAuthHandler_Validate_InvalidJSON(t *testing.T) {
	t.Parallel()

	rr := postJSON(NewAuthHandler(&stubSessions{}).Validate, `{"apiKey":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad_request", decode(t, rr)["kind"])
}

func TestAuthHandler_Validate_Success(t *testing.T) {
	t.Parallel()

	stub := &stubSessions{}
	rr := postJSON(NewAuthHandler(stub).Validate, `{"apiKey":"pit-1234567890","locationId":"loc-1"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "tok", body["sessionToken"])
	assert.Equal(t, "24h", body["expiresIn"])
	assert.Equal(t, "loc-1", body["locationId"])
	assert.Equal(t, "API key validated successfully", body["message"])
	assert.Equal(t, "pit-1234567890", stub.gotKey)
}

func TestAuthHandler_Validate_MapsServiceErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"format", auth.ValidateCredentialFormat("key-1234567890"), http.StatusBadRequest, "malformed_credential"},
		{"rejected", auth.ErrCredentialRejected, http.StatusUnauthorized, "credential_rejected"},
		{"scopes", auth.ErrInsufficientScopes, http.StatusForbidden, "insufficient_scopes"},
		{"check failed", &auth.CheckFailedError{Status: 500, Details: "upstream down"}, http.StatusBadRequest, "credential_check_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := postJSON(NewAuthHandler(&stubSessions{validateErr: tc.err}).Validate,
				`{"apiKey":"pit-1234567890","locationId":"loc-1"}`)

			assert.Equal(t, tc.status, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, tc.kind, body["kind"])
			assert.Equal(t, false, body["valid"])
		})
	}
}

func TestAuthHandler_Validate_ScopesListed(t *testing.T) {
	t.Parallel()

	rr := postJSON(NewAuthHandler(&stubSessions{validateErr: auth.ErrInsufficientScopes}).Validate,
		`{"apiKey":"pit-1234567890","locationId":"loc-1"}`)
	scopes, ok := decode(t, rr)["requiredScopes"].([]any)
	assert.True(t, ok)
	assert.Len(t, scopes, len(auth.RequiredScopes))
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{"missing", `{}`, nil, http.StatusBadRequest, "bad_request"},
		{"expired", `{"sessionToken":"a.b.c"}`, session.ErrTokenExpired, http.StatusUnauthorized, "session_expired"},
		{"invalid", `{"sessionToken":"a.b.c"}`, session.ErrTokenInvalid, http.StatusUnauthorized, "session_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := postJSON(NewAuthHandler(&stubSessions{refreshErr: tc.err}).Refresh, tc.body)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.kind, decode(t, rr)["kind"])
		})
	}
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	t.Parallel()

	rr := postJSON(NewAuthHandler(&stubSessions{}).Refresh, `{"sessionToken":"old"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "old-new", body["sessionToken"])
	assert.Equal(t, "24h", body["expiresIn"])
	assert.Equal(t, testLocation, body["locationId"])
}

func TestAuthHandler_RefreshWithRealIssuer(t *testing.T) {
	t.Parallel()

	iss := mustIssuer(t)
	token, _, err := iss.Issue(testLocation, testCredential)
	assert.NoError(t, err)

	h := NewAuthHandler(auth.NewSessionService(iss, nil, nil))
	rr := postJSON(h.Refresh, `{"sessionToken":"`+token+`"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testLocation, decode(t, rr)["locationId"])

	rr = postJSON(h.Refresh, `{"sessionToken":"`+token+`x"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "session_invalid", decode(t, rr)["kind"])
}

func TestAuthHandler_Requirements(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewAuthHandler(&stubSessions{}).Requirements(rr, httptest.NewRequest(http.MethodGet, "/auth/requirements", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, `Private Integration Token (PIT) starting with "pit-"`, body["apiKeyFormat"])
	assert.Len(t, body["requiredScopes"], 12)
	assert.Len(t, body["optionalScopes"], 4)
	assert.Len(t, body["instructions"], 5)
}

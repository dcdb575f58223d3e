package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
)

// SessionIssuer is the part of auth.SessionService the handler needs.
type SessionIssuer interface {
	Validate(ctx context.Context, credential, locationID string) (*auth.Grant, error)
	Refresh(token string) (*auth.Grant, error)
}

// AuthHandler serves the public session endpoints.
type AuthHandler struct {
	sessions SessionIssuer
}

// NewAuthHandler creates an AuthHandler backed by sessions.
func NewAuthHandler(sessions SessionIssuer) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// ValidateRequest is the body of POST /auth/validate.
type ValidateRequest struct {
	APIKey     string `json:"apiKey"`
	LocationID string `json:"locationId"`
}

// ValidateResponse is returned after a credential passed the live check.
type ValidateResponse struct {
	Valid        bool   `json:"valid"`
	LocationID   string `json:"locationId"`
	SessionToken string `json:"sessionToken"`
	ExpiresIn    string `json:"expiresIn"`
	Message      string `json:"message"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	SessionToken string `json:"sessionToken"`
}

// RefreshResponse carries the replacement token.
type RefreshResponse struct {
	SessionToken string `json:"sessionToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocationID   string `json:"locationId"`
}

// Validate handles POST /auth/validate.
//
// Response codes:
//   - 200 OK: credential accepted by the vendor, session token minted
//   - 400 Bad Request: missing fields, malformed credential, or failed check
//   - 401 Unauthorized: vendor rejected the credential
//   - 403 Forbidden: credential lacks required scopes
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, apierror.BadRequest(err.Error()))
		return
	}

	req.APIKey = strings.TrimSpace(req.APIKey)
	req.LocationID = strings.TrimSpace(req.LocationID)
	if req.APIKey == "" {
		writeInvalid(w, apierror.BadRequest("API key is required"))
		return
	}
	if req.LocationID == "" {
		writeInvalid(w, apierror.BadRequest(auth.ErrLocationRequired.Error()))
		return
	}

	grant, err := h.sessions.Validate(r.Context(), req.APIKey, req.LocationID)
	if err != nil {
		writeInvalid(w, apierror.From(err))
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:        true,
		LocationID:   grant.LocationID,
		SessionToken: grant.SessionToken,
		ExpiresIn:    grant.ExpiresIn,
		Message:      "API key validated successfully",
	})
}

// Refresh handles POST /auth/refresh. Expired and invalid tokens are both
// 401 but carry different kinds.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierror.Write(w, apierror.BadRequest(err.Error()))
		return
	}
	if strings.TrimSpace(req.SessionToken) == "" {
		apierror.Write(w, apierror.BadRequest("Session token is required"))
		return
	}

	grant, err := h.sessions.Refresh(strings.TrimSpace(req.SessionToken))
	if err != nil {
		apierror.WriteErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		SessionToken: grant.SessionToken,
		ExpiresIn:    grant.ExpiresIn,
		LocationID:   grant.LocationID,
	})
}

// Requirements handles GET /auth/requirements.
func (h *AuthHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.CredentialRequirements())
}

// writeInvalid adds valid:false to every /auth/validate failure.
func writeInvalid(w http.ResponseWriter, e *apierror.Error) {
	apierror.Write(w, e.With("valid", false))
}

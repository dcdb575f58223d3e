// Package apierror renders gateway failures as a single JSON envelope:
// {"error": message, "kind": kind, ...extra}.
// It is a leaf package so middleware and handlers can share it without an
// import cycle through internal/api.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/proxy"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
)

// Kind is the machine-readable failure class.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindAuthenticationRequired Kind = "authentication_required"
	KindMalformedCredential    Kind = "malformed_credential"
	KindCredentialRequired     Kind = "credential_required"
	KindCredentialMismatch     Kind = "credential_mismatch"
	KindSessionExpired         Kind = "session_expired"
	KindSessionInvalid         Kind = "session_invalid"
	KindLocationMismatch       Kind = "location_mismatch"
	KindCredentialRejected     Kind = "credential_rejected"
	KindInsufficientScopes     Kind = "insufficient_scopes"
	KindCredentialCheckFailed  Kind = "credential_check_failed"
	KindRateLimited            Kind = "rate_limit_exceeded"
	KindNotFound               Kind = "not_found"
	KindForbiddenCategory      Kind = "forbidden_category"
	KindDownstream             Kind = "downstream_error"
	KindInternal               Kind = "internal_error"
	KindBadRequest             Kind = "bad_request"
)

// Error is a failure ready to be written to a client.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Extra   map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// New builds an Error without extra fields.
func New(status int, kind Kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// With returns a copy of e carrying an extra body field.
func (e *Error) With(key string, value any) *Error {
	out := *e
	out.Extra = make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		out.Extra[k] = v
	}
	out.Extra[key] = value
	return &out
}

// Body returns the JSON object written for e. "error" and "kind" always win
// over extra fields of the same name.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		body[k] = v
	}
	body["error"] = e.Message
	body["kind"] = string(e.Kind)
	return body
}

// Write renders e as the response.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e.Body()) //nolint:errcheck
}

// WriteErr maps err with From and writes it.
func WriteErr(w http.ResponseWriter, err error) {
	Write(w, From(err))
}

// ===== CONSTRUCTORS =====

// Validation reports every parameter violation found for toolName.
func Validation(toolName string, violations []string) *Error {
	return New(http.StatusBadRequest, KindValidation, "Invalid parameters").
		With("tool", toolName).
		With("errors", violations)
}

// ToolNotFound is the 404 for an unknown tool name.
func ToolNotFound(name string, available []string) *Error {
	return New(http.StatusNotFound, KindNotFound, fmt.Sprintf("Tool '%s' not found or not supported", name)).
		With("availableTools", available)
}

// ForbiddenCategory is the 403 for a tool outside the dispatchable categories.
func ForbiddenCategory(name string) *Error {
	return New(http.StatusForbidden, KindForbiddenCategory,
		fmt.Sprintf("Tool '%s' is not in supported categories (%s)", name, supportedList()))
}

// RateLimited is the 429 body. windowMs is the configured window in milliseconds.
func RateLimited(maxRequests int, windowMs int64, retryAfter int) *Error {
	return New(http.StatusTooManyRequests, KindRateLimited, "Rate limit exceeded").
		With("maxRequests", maxRequests).
		With("windowMs", windowMs).
		With("retryAfter", retryAfter)
}

// BadRequest is a plain 400.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, KindBadRequest, message)
}

// LocationMismatch is returned when a session is used for another location.
func LocationMismatch() *Error {
	return New(http.StatusForbidden, KindLocationMismatch, "Session token is not valid for this location")
}

// ===== ERROR MAPPING =====

// From maps a domain error onto its client-facing Error. An *Error passes
// through unchanged; anything unrecognised becomes a 500 with no internals.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var formatErr *auth.FormatError
	if errors.As(err, &formatErr) {
		return New(http.StatusBadRequest, KindMalformedCredential, formatErr.Reason)
	}

	var downstream *proxy.DownstreamError
	if errors.As(err, &downstream) {
		return New(downstream.Status, KindDownstream, "MCP request failed").
			With("details", downstream.Details()).
			With("status", downstream.Status)
	}

	var checkFailed *auth.CheckFailedError
	if errors.As(err, &checkFailed) {
		return New(http.StatusBadRequest, KindCredentialCheckFailed, auth.ErrCredentialCheckFailed.Error()).
			With("details", checkFailed.Details)
	}

	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired):
		return New(http.StatusUnauthorized, KindAuthenticationRequired, auth.ErrAuthenticationRequired.Error()).
			With("methods", auth.AcceptedMethods)
	case errors.Is(err, auth.ErrMalformedCredential):
		return New(http.StatusBadRequest, KindMalformedCredential, err.Error())
	case errors.Is(err, auth.ErrCredentialRequired):
		return New(http.StatusUnauthorized, KindCredentialRequired,
			"API key required in x-api-key or Authorization: Bearer header alongside the session token")
	case errors.Is(err, auth.ErrCredentialMismatch):
		return New(http.StatusUnauthorized, KindCredentialMismatch, "API key does not match the session token")
	case errors.Is(err, session.ErrTokenExpired):
		return New(http.StatusUnauthorized, KindSessionExpired, "Session token expired")
	case errors.Is(err, session.ErrTokenInvalid):
		return New(http.StatusUnauthorized, KindSessionInvalid, "Invalid session token")
	case errors.Is(err, auth.ErrLocationRequired):
		return BadRequest(auth.ErrLocationRequired.Error())
	case errors.Is(err, auth.ErrCredentialRejected):
		return New(http.StatusUnauthorized, KindCredentialRejected, auth.ErrCredentialRejected.Error())
	case errors.Is(err, auth.ErrInsufficientScopes):
		return New(http.StatusForbidden, KindInsufficientScopes, auth.ErrInsufficientScopes.Error()).
			With("requiredScopes", auth.RequiredScopes)
	case errors.Is(err, auth.ErrCredentialCheckFailed):
		return New(http.StatusBadRequest, KindCredentialCheckFailed, auth.ErrCredentialCheckFailed.Error())
	case errors.Is(err, tool.ErrToolNotFound):
		return New(http.StatusNotFound, KindNotFound, "Tool not found or not supported")
	case errors.Is(err, proxy.ErrForbiddenCategory):
		return New(http.StatusForbidden, KindForbiddenCategory,
			fmt.Sprintf("Tool is not in supported categories (%s)", supportedList()))
	case errors.Is(err, ghl.ErrResponseTooLarge):
		return New(http.StatusBadGateway, KindDownstream,
			fmt.Sprintf("MCP response exceeds the %d MiB limit", ghl.MaxBodyBytes>>20)).
			With("status", http.StatusBadGateway)
	case errors.Is(err, proxy.ErrDownstreamUnavailable):
		return New(http.StatusInternalServerError, KindInternal, "Failed to proxy MCP request")
	}
	return New(http.StatusInternalServerError, KindInternal, "Internal server error")
}

func supportedList() string {
	out := ""
	for i, c := range tool.SupportedCategories {
		if i > 0 {
			out += ", "
		}
		out += string(c)
	}
	return out
}

// Package handlers translates HTTP requests into gateway domain calls and
// maps domain errors onto the JSON error envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
)

const (
	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 10 << 20

	// proxyPathPrefix is the public path tools are invoked under.
	proxyPathPrefix = "/api/mcp/proxy/"

	// headerLocationID optionally carries the location on diagnostic routes.
	headerLocationID = "X-Location-Id"
)

// ServerName and ServerDescription identify the service in informational responses.
const (
	ServerName        = "GoHighLevel MCP Directory Server"
	ServerDescription = "MCP Directory endpoint for GoHighLevel integration with n8n"
)

var errInvalidBody = errors.New("invalid request body")

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// decodeJSON reads a JSON object body into v. Numbers decode as json.Number
// so integer parameters reach the vendor unchanged. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidBody
	}
	return nil
}

// stringField returns body[key] when it is a non-blank string.
func stringField(body map[string]any, key string) string {
	s, ok := body[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// rawCredential reads a vendor credential from X-Api-Key or a Bearer header
// without authenticating it.
func rawCredential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(auth.HeaderAPIKey)); key != "" {
		return key
	}
	header := r.Header.Get(auth.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requestLocation reads the location from X-Location-Id or ?locationId=.
func requestLocation(r *http.Request) string {
	if loc := strings.TrimSpace(r.Header.Get(headerLocationID)); loc != "" {
		return loc
	}
	return strings.TrimSpace(r.URL.Query().Get("locationId"))
}

// identity returns the caller resolved by the auth middleware. Routes
// mounted without it get 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := ctxkeys.IdentityFrom(r.Context())
	if !ok {
		apierror.WriteErr(w, auth.ErrAuthenticationRequired)
		return auth.Identity{}, false
	}
	return id, true
}

// isoTimestamp renders t the way JavaScript's toISOString does.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

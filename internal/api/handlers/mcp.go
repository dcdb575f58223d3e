package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/proxy"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
)

// ToolDispatcher is the part of *proxy.Dispatcher the handler needs.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, c proxy.Call) (*proxy.Result, error)
	Probe(ctx context.Context, locationID, credential string) error
}

// CredentialResolver yields the vendor credential for an authenticated caller.
// *auth.Authenticator satisfies it.
type CredentialResolver interface {
	DownstreamCredential(r *http.Request, id auth.Identity) (string, error)
}

// MCPHandler serves tool listing, proxying and the downstream probe.
type MCPHandler struct {
	registry    *tool.Registry
	credentials CredentialResolver
	dispatcher  ToolDispatcher
	mcpEndpoint string
	now         func() time.Time
}

// NewMCPHandler creates an MCPHandler. mcpEndpoint is advertised to clients.
func NewMCPHandler(registry *tool.Registry, credentials CredentialResolver, dispatcher ToolDispatcher, mcpEndpoint string) *MCPHandler {
	return &MCPHandler{
		registry:    registry,
		credentials: credentials,
		dispatcher:  dispatcher,
		mcpEndpoint: mcpEndpoint,
		now:         time.Now,
	}
}

// ListTools handles GET /mcp/tools?locationId=. Only dispatchable tools are listed.
func (h *MCPHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("locationId")
	if locationID == "" {
		apierror.Write(w, apierror.BadRequest("locationId is required"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tools":               h.registry.Supported(),
		"mcpEndpoint":         h.mcpEndpoint,
		"locationId":          locationID,
		"supportedCategories": tool.SupportedCategories,
	})
}

// Proxy handles POST /mcp/proxy/{toolName}.
//
// Admission order after authentication and rate limiting:
//  1. locationId must be present in the body (400)
//  2. a session caller may only act on its own location (403)
//  3. the tool must exist (404, lists the dispatchable tools)
//  4. parameters must validate (400, lists every violation)
//  5. the vendor credential must be resolvable (401)
//  6. the dispatcher gates the category (403) and calls the vendor
func (h *MCPHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	toolName := chi.URLParam(r, "toolName")

	body := map[string]any{}
	if err := decodeJSON(w, r, &body); err != nil {
		apierror.Write(w, apierror.BadRequest(err.Error()))
		return
	}

	if raw, present := body["locationId"]; present {
		if _, isString := raw.(string); !isString {
			apierror.Write(w, apierror.BadRequest("locationId must be a string"))
			return
		}
	}
	locationID := stringField(body, "locationId")
	if locationID == "" {
		apierror.Write(w, apierror.BadRequest("locationId is required in request body"))
		return
	}
	if id.LocationID != "" && id.LocationID != locationID {
		apierror.Write(w, apierror.LocationMismatch())
		return
	}

	def, found := h.registry.Lookup(toolName)
	if !found {
		apierror.Write(w, apierror.ToolNotFound(toolName, supportedNames(h.registry)))
		return
	}

	if verdict := tool.Validate(def, body); !verdict.Valid {
		apierror.Write(w, apierror.Validation(def.Name, verdict.Errors))
		return
	}

	credential, err := h.credentials.DownstreamCredential(r, id)
	if err != nil {
		apierror.WriteErr(w, err)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), proxy.Call{
		Tool:                  def,
		LocationID:            locationID,
		Credential:            credential,
		CredentialFingerprint: id.CredentialFingerprint,
		Params:                body,
	})
	if err != nil {
		if errors.Is(err, proxy.ErrForbiddenCategory) {
			apierror.Write(w, apierror.ForbiddenCategory(def.Name))
			return
		}
		apierror.WriteErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CategoryTools returns the handler for GET /mcp/{category}/tools.
func (h *MCPHandler) CategoryTools(c tool.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"category": c,
			"tools":    h.registry.ByCategory(c),
		}
		if c == tool.CategoryBlog {
			resp["note"] = "Blog tools will be available in future updates"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Health handles GET /mcp/health?locationId=. It answers 503 whenever the
// vendor MCP endpoint could not be reached or did not answer 2xx.
func (h *MCPHandler) Health(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	locationID := r.URL.Query().Get("locationId")
	if locationID == "" {
		apierror.Write(w, apierror.BadRequest("locationId is required for health check"))
		return
	}
	if id.LocationID != "" && id.LocationID != locationID {
		apierror.Write(w, apierror.LocationMismatch())
		return
	}

	credential, err := h.credentials.DownstreamCredential(r, id)
	if err != nil {
		apierror.WriteErr(w, err)
		return
	}

	if err := h.dispatcher.Probe(r.Context(), locationID, credential); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"mcpServer": "disconnected",
			"error":     err.Error(),
			"kind":      apierror.From(err).Kind,
			"timestamp": isoTimestamp(h.now()),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"mcpServer":  "connected",
		"locationId": locationID,
		"timestamp":  isoTimestamp(h.now()),
	})
}

func supportedNames(r *tool.Registry) []string {
	defs := r.Supported()
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

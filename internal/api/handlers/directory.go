package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
)

// DirectoryHandler serves read-only catalog introspection.
type DirectoryHandler struct {
	registry *tool.Registry
}

// NewDirectoryHandler creates a DirectoryHandler over registry.
func NewDirectoryHandler(registry *tool.Registry) *DirectoryHandler {
	return &DirectoryHandler{registry: registry}
}

// directoryTool is one tool as listed by the directory.
type directoryTool struct {
	Name        string           `json:"name"`
	Category    tool.Category    `json:"category"`
	Description string           `json:"description"`
	Endpoint    string           `json:"endpoint"`
	Parameters  tool.ParamSchema `json:"parameters"`
	TriggerType tool.TriggerType `json:"triggerType"`
	// RequiredScopes is only set when the caller asked for scopes.
	RequiredScopes any `json:"requiredScopes,omitempty"`
}

type simpleTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
}

type categoryListing struct {
	Name        tool.Category `json:"name"`
	Description string        `json:"description"`
	TotalTools  int           `json:"totalTools"`
	Tools       any           `json:"tools"`
}

type categoryCount struct {
	Category tool.Category `json:"category"`
	Count    int           `json:"count"`
}

type toolUsage struct {
	Endpoint       string            `json:"endpoint"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers"`
	ExampleRequest map[string]any    `json:"exampleRequest"`
}

type toolDetail struct {
	directoryTool
	Usage toolUsage `json:"usage"`
}

// Index handles GET /directory?category=&includeScopes=true.
func (h *DirectoryHandler) Index(w http.ResponseWriter, r *http.Request) {
	includeScopes := r.URL.Query().Get("includeScopes") == "true"
	categories := h.registry.Categories()

	if c := tool.Category(r.URL.Query().Get("category")); c != "" {
		if !h.registry.HasCategory(c) {
			apierror.Write(w, apierror.BadRequest(fmt.Sprintf("Invalid category '%s'", c)).
				With("availableCategories", categories))
			return
		}
		defs := h.registry.ByCategory(c)
		writeJSON(w, http.StatusOK, map[string]any{
			"category":    c,
			"description": c.Description(),
			"totalTools":  len(defs),
			"tools":       formatTools(defs, includeScopes),
		})
		return
	}

	listings := make(map[tool.Category]categoryListing, len(categories))
	breakdown := make([]categoryCount, 0, len(categories))
	for _, c := range categories {
		defs := h.registry.ByCategory(c)
		listings[c] = categoryListing{
			Name:        c,
			Description: c.Description(),
			TotalTools:  len(defs),
			Tools:       formatTools(defs, includeScopes),
		}
		breakdown = append(breakdown, categoryCount{Category: c, Count: len(defs)})
	}

	summary := map[string]any{
		"totalEndpoints":      h.registry.Len(),
		"categoriesBreakdown": breakdown,
	}
	if includeScopes {
		summary["requiredScopes"] = h.registry.AllScopes()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"serverInfo": map[string]any{
			"name":            ServerName,
			"version":         serviceVersion(),
			"description":     "Comprehensive directory of MCP endpoints organized by trigger categories",
			"totalCategories": len(categories),
			"totalTools":      h.registry.Len(),
		},
		"categories": listings,
		"summary":    summary,
	})
}

// Category handles GET /directory/category/{categoryName}?format=simple|detailed.
func (h *DirectoryHandler) Category(w http.ResponseWriter, r *http.Request) {
	c := tool.Category(chi.URLParam(r, "categoryName"))
	defs := h.registry.ByCategory(c)
	if len(defs) == 0 {
		apierror.Write(w, apierror.New(http.StatusNotFound, apierror.KindNotFound,
			fmt.Sprintf("Category '%s' not found", c)).
			With("availableCategories", h.registry.Categories()))
		return
	}

	var tools any
	if r.URL.Query().Get("format") == "simple" {
		simple := make([]simpleTool, 0, len(defs))
		for _, d := range defs {
			simple = append(simple, simpleTool{Name: d.Name, Description: d.Description, Endpoint: proxyPathPrefix + d.Name})
		}
		tools = simple
	} else {
		tools = formatTools(defs, r.URL.Query().Get("includeScopes") == "true")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category":    c,
		"description": c.Description(),
		"totalTools":  len(defs),
		"tools":       tools,
	})
}

// Tool handles GET /directory/tool/{toolName}. Unknown names get 404 with
// every registered tool name.
func (h *DirectoryHandler) Tool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "toolName")
	def, ok := h.registry.Lookup(name)
	if !ok {
		apierror.Write(w, apierror.New(http.StatusNotFound, apierror.KindNotFound,
			fmt.Sprintf("Tool '%s' not found", name)).
			With("availableTools", h.registry.Names()))
		return
	}

	writeJSON(w, http.StatusOK, toolDetail{
		directoryTool: formatTool(def, r.URL.Query().Get("includeScopes") == "true"),
		Usage: toolUsage{
			Endpoint: proxyPathPrefix + def.Name,
			Method:   http.MethodPost,
			Headers: map[string]string{
				"x-api-key":     "your-pit-token",
				"x-location-id": tool.ExampleLocationID,
				"Content-Type":  "application/json",
			},
			ExampleRequest: def.ExampleRequest(),
		},
	})
}

// Search handles GET /directory/search?q=&category=&scope=.
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		apierror.Write(w, apierror.BadRequest(`Search query parameter "q" is required`))
		return
	}

	filter := tool.SearchFilter{Category: tool.Category(q.Get("category")), Scope: q.Get("scope")}
	results := h.registry.Search(query, filter)

	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"filters": map[string]any{
			"category": optional(string(filter.Category)),
			"scope":    optional(filter.Scope),
		},
		"totalResults": len(results),
		"results":      formatTools(results, false),
	})
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func formatTool(d tool.ToolDefinition, includeScopes bool) directoryTool {
	out := directoryTool{
		Name:        d.Name,
		Category:    d.Category,
		Description: d.Description,
		Endpoint:    proxyPathPrefix + d.Name,
		Parameters:  d.Params,
		TriggerType: d.Trigger(),
	}
	if includeScopes {
		scopes := d.RequiredScopes
		if scopes == nil {
			scopes = []string{}
		}
		out.RequiredScopes = scopes
	}
	return out
}

func formatTools(defs []tool.ToolDefinition, includeScopes bool) []directoryTool {
	out := make([]directoryTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, formatTool(d, includeScopes))
	}
	return out
}

// optional renders an unset filter as null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

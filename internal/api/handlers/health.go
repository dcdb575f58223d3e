package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
	"github.com/matiasleandrokruk/ghl-gateway/internal/version"
)

// VendorProbe is the part of *ghl.Client the diagnostics need.
type VendorProbe interface {
	GetLocation(ctx context.Context, credential, locationID string) (*ghl.Response, error)
	Ping(ctx context.Context, credential, locationID string) (*ghl.Response, error)
}

// HealthConfig describes the running process for diagnostics.
type HealthConfig struct {
	Environment string
	APIBaseURL  string
	MCPBaseURL  string
	Started     time.Time
}

// HealthHandler serves the public liveness and diagnostics endpoints.
type HealthHandler struct {
	registry *tool.Registry
	vendor   VendorProbe
	cfg      HealthConfig
	now      func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(registry *tool.Registry, vendor VendorProbe, cfg HealthConfig) *HealthHandler {
	if cfg.Started.IsZero() {
		cfg.Started = time.Now()
	}
	return &HealthHandler{registry: registry, vendor: vendor, cfg: cfg, now: time.Now}
}

type check struct {
	Status          string          `json:"status"`
	ResponseTime    *int64          `json:"responseTime,omitempty"`
	Endpoint        string          `json:"endpoint,omitempty"`
	Error           string          `json:"error,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Count           int             `json:"count,omitempty"`
	Categories      []tool.Category `json:"categories,omitempty"`
	AvailableTools  *int            `json:"availableTools,omitempty"`
	ComingSoonTools *int            `json:"comingSoonTools,omitempty"`
}

func (c check) ok() bool { return c.Status == "healthy" || c.Status == "skipped" }

// Basic handles GET /health.
func (h *HealthHandler) Basic(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	uptime := h.now().Sub(h.cfg.Started)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": isoTimestamp(h.now()),
		"uptime": map[string]any{
			"seconds": int64(uptime.Seconds()),
			"human":   humanUptime(uptime),
		},
		"version":     serviceVersion(),
		"environment": h.cfg.Environment,
		"memory": map[string]string{
			"used":  megabytes(mem.HeapAlloc),
			"total": megabytes(mem.HeapSys),
		},
	})
}

// Detailed handles GET /health/detailed. Vendor connectivity is only tested
// when the request carries both a credential and a location; otherwise the
// check is reported as skipped.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	available := len(h.registry.Supported())
	comingSoon := h.registry.Len() - available
	toolsCheck := check{
		Status:          "healthy",
		Count:           h.registry.Len(),
		Categories:      tool.SupportedCategories,
		AvailableTools:  &available,
		ComingSoonTools: &comingSoon,
	}

	vendorCheck := check{Status: "skipped", Reason: "No API key or location ID provided for testing"}
	if credential, locationID := rawCredential(r), requestLocation(r); credential != "" && locationID != "" {
		vendorStart := h.now()
		resp, err := h.vendor.GetLocation(r.Context(), credential, locationID)
		elapsed := h.now().Sub(vendorStart).Milliseconds()
		vendorCheck = check{Status: "healthy", ResponseTime: &elapsed, Endpoint: h.cfg.APIBaseURL}
		switch {
		case err != nil:
			vendorCheck.Status, vendorCheck.Error = "unhealthy", "Connection failed"
		case resp.Status == http.StatusUnauthorized:
			vendorCheck.Status, vendorCheck.Error = "unhealthy", "Authentication failed"
		case !resp.OK():
			vendorCheck.Status, vendorCheck.Error = "unhealthy", "Connection failed"
		}
	}

	serverTime := h.now().Sub(start).Milliseconds()
	serverCheck := check{Status: "healthy", ResponseTime: &serverTime}

	status := "healthy"
	for _, c := range []check{serverCheck, toolsCheck, vendorCheck} {
		if !c.ok() {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"timestamp":    isoTimestamp(h.now()),
		"responseTime": h.now().Sub(start).Milliseconds(),
		"checks": map[string]check{
			"server":          serverCheck,
			"mcpTools":        toolsCheck,
			"ghlConnectivity": vendorCheck,
		},
		"requiredScopes": h.registry.AllScopes(),
	})
}

// MCP handles GET /health/mcp. The vendor status is passed through on
// failure; a transport failure is a 500.
func (h *HealthHandler) MCP(w http.ResponseWriter, r *http.Request) {
	credential := rawCredential(r)
	if credential == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"kind":    "bad_request",
			"message": "API key required for MCP connectivity test",
			"headers": map[string]string{
				"required": "x-api-key or Authorization: Bearer",
				"optional": "x-location-id",
			},
		})
		return
	}
	locationID := requestLocation(r)

	start := h.now()
	resp, err := h.vendor.Ping(r.Context(), credential, locationID)
	elapsed := h.now().Sub(start).Milliseconds()

	if err == nil && resp.OK() {
		shownLocation := locationID
		if shownLocation == "" {
			shownLocation = "not provided"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"mcpServer": map[string]any{
				"endpoint":     h.cfg.MCPBaseURL,
				"responseTime": elapsed,
				"status":       resp.Status,
				"connected":    true,
			},
			"authentication": map[string]any{
				"apiKeyValid": true,
				"locationId":  shownLocation,
			},
			"timestamp": isoTimestamp(h.now()),
		})
		return
	}

	server := map[string]any{
		"endpoint":  h.cfg.MCPBaseURL,
		"connected": false,
	}
	body := map[string]any{
		"status":    "unhealthy",
		"kind":      "downstream_error",
		"mcpServer": server,
		"timestamp": isoTimestamp(h.now()),
	}
	status := http.StatusInternalServerError
	if err != nil {
		body["kind"] = "internal_error"
		server["error"] = err.Error()
	} else {
		status = resp.Status
		server["error"] = fmt.Sprintf("Request failed with status code %d", resp.Status)
		server["httpStatus"] = resp.Status
		server["httpStatusText"] = http.StatusText(resp.Status)
		if resp.Status == http.StatusUnauthorized {
			body["authentication"] = map[string]any{
				"apiKeyValid": false,
				"error":       "Invalid API key or insufficient permissions",
			}
		}
	}
	writeJSON(w, status, body)
}

// System handles GET /health/system.
func (h *HealthHandler) System(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	zone, _ := h.now().Zone()

	writeJSON(w, http.StatusOK, map[string]any{
		"runtime": map[string]any{
			"version":    runtime.Version(),
			"platform":   runtime.GOOS,
			"arch":       runtime.GOARCH,
			"goroutines": runtime.NumGoroutine(),
			"cpus":       runtime.NumCPU(),
		},
		"memory": map[string]string{
			"sys":       megabytes(mem.Sys),
			"heapTotal": megabytes(mem.HeapSys),
			"heapUsed":  megabytes(mem.HeapAlloc),
			"stack":     megabytes(mem.StackSys),
		},
		"uptime": map[string]any{
			"process": h.now().Sub(h.cfg.Started).Seconds(),
		},
		"environment": map[string]any{
			"env":       h.cfg.Environment,
			"timezone":  zone,
			"timestamp": isoTimestamp(h.now()),
		},
		"server": map[string]any{
			"name":        ServerName,
			"version":     serviceVersion(),
			"description": ServerDescription,
		},
	})
}

// Root handles GET /.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        ServerName,
		"version":     serviceVersion(),
		"description": ServerDescription,
		"endpoints": map[string]string{
			"mcp":       "/api/mcp",
			"auth":      "/api/auth",
			"health":    "/api/health",
			"directory": "/api/directory",
		},
		"documentation": "https://marketplace.gohighlevel.com/docs/other/mcp",
	})
}

// NotFound is the JSON fallback for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{
			"message": "Endpoint not found",
			"status":  http.StatusNotFound,
		},
		"kind": "not_found",
	})
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func serviceVersion() string { return version.Version }

func humanUptime(d time.Duration) string {
	s := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", s/3600, (s%3600)/60, s%60)
}

func megabytes(b uint64) string {
	return fmt.Sprintf("%d MB", (b+(1<<19))>>20)
}

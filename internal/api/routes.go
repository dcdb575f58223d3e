// Package api assembles the HTTP surface: middleware chain, public routes
// and the authenticated tool gateway.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/ghl-gateway/internal/api/middleware"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/proxy"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/mcpserver"
)

// Vendor is the LeadConnector surface the gateway calls. *ghl.Client
// satisfies it.
type Vendor interface {
	proxy.Downstream
	handlers.VendorProbe
}

// Dependencies are the long-lived collaborators the router wires together.
type Dependencies struct {
	Registry *tool.Registry
	Issuer   *session.Issuer
	Vendor   Vendor
	Limiter  apmiddleware.Admitter
	// Recorder receives one audit entry per dispatched tool call. Nil discards them.
	Recorder audit.Recorder
	Logger   *zap.Logger

	Environment    string
	Production     bool
	AllowedOrigins []string
	APIBaseURL     string
	MCPBaseURL     string
	Started        time.Time
}

// NewRouter creates the chi router with every route mounted twice: at the
// root and under /api.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(apmiddleware.SecurityHeaders(deps.Production))
	r.Use(apmiddleware.CORS(deps.AllowedOrigins))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(methodNotAllowed)

	rt := newRoutes(deps, logger)
	rt.register(r)
	r.Route("/api", rt.register)

	return r
}

type routes struct {
	authenticate func(http.Handler) http.Handler
	rateLimit    func(http.Handler) http.Handler

	auth      *handlers.AuthHandler
	mcp       *handlers.MCPHandler
	directory *handlers.DirectoryHandler
	health    *handlers.HealthHandler
	rpc       http.Handler
}

func newRoutes(deps Dependencies, logger *zap.Logger) *routes {
	authenticator := domainauth.NewAuthenticator(deps.Issuer)
	dispatcher := proxy.NewDispatcher(deps.Vendor, deps.Recorder, logger.Named("proxy"))
	sessions := domainauth.NewSessionService(deps.Issuer, deps.Vendor, logger.Named("auth"))

	return &routes{
		authenticate: apmiddleware.Authenticate(authenticator, logger),
		rateLimit:    apmiddleware.RateLimit(deps.Limiter, logger),
		auth:         handlers.NewAuthHandler(sessions),
		mcp:          handlers.NewMCPHandler(deps.Registry, authenticator, dispatcher, deps.MCPBaseURL),
		directory:    handlers.NewDirectoryHandler(deps.Registry),
		health: handlers.NewHealthHandler(deps.Registry, deps.Vendor, handlers.HealthConfig{
			Environment: deps.Environment,
			APIBaseURL:  deps.APIBaseURL,
			MCPBaseURL:  deps.MCPBaseURL,
			Started:     deps.Started,
		}),
		rpc: mcpserver.New(deps.Registry, authenticator, dispatcher, logger.Named("mcp")).Handler(),
	}
}

func (rt *routes) register(r chi.Router) {
	// ===== PUBLIC ROUTES (no auth required) =====

	r.Get("/", handlers.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.health.Basic)
		r.Get("/detailed", rt.health.Detailed)
		r.Get("/mcp", rt.health.MCP)
		r.Get("/system", rt.health.System)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/validate", rt.auth.Validate)
		r.Post("/refresh", rt.auth.Refresh)
		r.Get("/requirements", rt.auth.Requirements)
	})

	// ===== PROTECTED ROUTES (session token, X-Api-Key or Bearer) =====

	r.Route("/mcp", func(r chi.Router) {
		r.Use(rt.authenticate)
		r.Use(rt.rateLimit)

		r.Get("/tools", rt.mcp.ListTools)
		r.Post("/proxy/{toolName}", rt.mcp.Proxy)
		for _, c := range tool.SupportedCategories {
			r.Get("/"+string(c)+"/tools", rt.mcp.CategoryTools(c))
		}
		r.Get("/health", rt.mcp.Health)
		r.Handle("/rpc", rt.rpc)
	})

	r.Route("/directory", func(r chi.Router) {
		r.Use(rt.authenticate)

		r.Get("/", rt.directory.Index)
		r.Get("/category/{categoryName}", rt.directory.Category)
		r.Get("/tool/{toolName}", rt.directory.Tool)
		r.Get("/search", rt.directory.Search)
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apierror.Write(w, apierror.New(http.StatusMethodNotAllowed, apierror.KindBadRequest, "Method not allowed"))
}

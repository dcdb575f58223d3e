package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/audit"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/ratelimit"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/config"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/eventbus"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/logging"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/sqlite"
	"github.com/matiasleandrokruk/ghl-gateway/internal/server"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Long: `Start the HTTP server. Configuration is read from the environment:

  PORT, APP_ENV, JWT_SECRET, LOG_LEVEL, ALLOWED_ORIGINS,
  GHL_API_BASE_URL, GHL_MCP_BASE_URL, RATE_LIMIT_MAX,
  RATE_LIMIT_WINDOW_MS, AUDIT_DB_PATH, CATALOG_PATH`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

// runServe wires the gateway from cfg and blocks until ctx is cancelled.
func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set, signing sessions with the development secret")
	}

	registry, err := loadRegistry(cfg.CatalogPath)
	if err != nil {
		return err
	}
	issuer, err := session.NewIssuer(cfg.SigningSecret())
	if err != nil {
		return fmt.Errorf("session issuer: %w", err)
	}
	limiter, err := ratelimit.New(ratelimit.Config{MaxRequests: cfg.RateLimitMax, Window: cfg.RateLimitWindow})
	if err != nil {
		return err
	}
	limiter.Start(ctx, sweepInterval)
	closers := []io.Closer{limiter}

	var recorder audit.Recorder = audit.Nop{}
	if cfg.AuditDBPath != "" {
		db, err := sqlite.Open(cfg.AuditDBPath)
		if err != nil {
			_ = limiter.Close()
			return fmt.Errorf("open audit db: %w", err)
		}
		// Invocations are written off the request path.
		async := audit.NewAsync(audit.NewStore(db), eventbus.New(), logger.Named("audit"))
		recorder = async
		closers = append(closers, async, db)
	}

	vendor := ghl.NewClient(cfg.APIBaseURL, cfg.MCPBaseURL)
	router := api.NewRouter(api.Dependencies{
		Registry:       registry,
		Issuer:         issuer,
		Vendor:         vendor,
		Limiter:        limiter,
		Recorder:       recorder,
		Logger:         logger,
		Environment:    cfg.Env,
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
		APIBaseURL:     cfg.APIBaseURL,
		MCPBaseURL:     vendor.MCPBaseURL(),
		Started:        time.Now(),
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Port = cfg.Port
	srv := server.NewServer(router, srvCfg, logger, closers...)

	logger.Info("gateway configured",
		zap.String("env", cfg.Env),
		zap.Int("tools", registry.Len()),
		zap.Int("rate_limit_max", cfg.RateLimitMax),
		zap.Duration("rate_limit_window", cfg.RateLimitWindow),
		zap.Bool("audit", cfg.AuditDBPath != ""))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx))
}

func loadRegistry(path string) (*tool.Registry, error) {
	if path == "" {
		return tool.LoadDefaultRegistry()
	}
	return tool.LoadCatalogFile(path)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"adcp-sales-agent/internal/api"
	"adcp-sales-agent/internal/auth"
	"adcp-sales-agent/internal/config"
	"adcp-sales-agent/internal/dbcred"
	"adcp-sales-agent/internal/logging"
	"adcp-sales-agent/internal/mcp"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/internal/scheduler"
	"adcp-sales-agent/internal/services"
	"adcp-sales-agent/internal/tls"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "adcp-sales-agent",
		Short: "Multi-tenant advertising sales agent serving MCP tools over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment == "dev")
	defer logger.Sync()

	logger.Info("starting sales agent",
		"environment", cfg.Environment,
		"testing_mode", cfg.TestingMode,
		"port", cfg.Server.Port,
	)

	pool, credSource, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}
	defer pool.Close()
	if credSource != nil {
		credSource.StartRefresh(ctx, 10*time.Minute)
		defer credSource.StopRefresh()
	}
	logger.Info("database connected")

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("schema migration: %w", err)
	}

	// Service layer
	auditor := services.NewAuditor(store, logger)
	resolver := auth.NewResolver(store, logger)
	workflows := services.NewWorkflowService(store, auditor, logger)
	products := services.NewProductService(store, auditor)
	formats := services.NewFormatRegistry()
	mediaBuys := services.NewMediaBuyService(store, auditor, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("adcp-sales-agent"))

	apiHandler := api.NewHandler(pool, cfg.TestingMode)
	e.GET("/health", echo.WrapHandler(http.HandlerFunc(apiHandler.HandleHealth)))
	e.GET("/healthz", echo.WrapHandler(http.HandlerFunc(apiHandler.HandleHealth)))
	e.GET("/ready", echo.WrapHandler(http.HandlerFunc(apiHandler.HandleReady)))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/admin/reset-db-pool", echo.WrapHandler(http.HandlerFunc(apiHandler.HandleResetDBPool)))
	e.GET("/debug/db-state", echo.WrapHandler(http.HandlerFunc(apiHandler.HandleDebugDBState)))

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(resolver, workflows, products, formats, mediaBuys, logger)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP tool handlers mounted")

	// Background schedulers. Startup and shutdown are best-effort: a
	// scheduler failure never takes the serving path down with it.
	statusScheduler := scheduler.NewMediaBuyStatusScheduler(store, logger, cfg.Schedulers.MediaBuyStatusInterval)
	statusScheduler.Start(ctx)
	defer statusScheduler.Stop()

	var webhookScheduler *scheduler.Scheduler
	if cfg.Schedulers.DeliveryWebhookURL != "" {
		webhookScheduler = scheduler.NewDeliveryWebhookScheduler(store, logger, cfg.Schedulers.DeliveryWebhookInterval, cfg.Schedulers.DeliveryWebhookURL, nil)
		webhookScheduler.Start(ctx)
		defer webhookScheduler.Stop()
	} else {
		logger.Info("delivery webhook scheduler disabled, no webhook URL configured")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				serverErrors <- fmt.Errorf("tls enabled but cert_file or key_file not set")
				return
			}
			if len(cfg.TLS.Hostnames) > 0 {
				if err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
					logger.Error("failed to ensure self-signed cert", "error", err)
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, *dbcred.Source, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	var credSource *dbcred.Source
	if cfg.DB.CredentialsURL != "" {
		credSource = dbcred.NewSource(cfg.DB.CredentialsURL, cfg.DB.InstanceName, cfg.DB.APIToken, logger)
		poolConfig.BeforeConnect = credSource.BeforeConnect
		logger.Info("database credential source enabled", "credentials_url", cfg.DB.CredentialsURL)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, credSource, nil
}

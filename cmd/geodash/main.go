package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"geodash/internal/config"
	"geodash/internal/geoip"
	"geodash/internal/observability/logging"
	"geodash/internal/observability/metrics"
	"geodash/internal/service"
	"geodash/internal/store"
	"geodash/internal/token"
	httpx "geodash/internal/transport/http"
)

func main() {
	// Local development reads .env; in deployment the variables come from the
	// environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "geodash",
		Environment: cfg.Environment,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	metrics.MustRegister("geodash")

	logger.Info("starting service")

	db, err := store.Open(cfg.DatabaseURL, !cfg.Production())
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(db); err != nil {
			logger.Error("closing db pool", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := store.AutoMigrate(migrateCtx, db); err != nil {
		cancel()
		logger.Error("auto-migrate", "error", err)
		os.Exit(1)
	}
	cancel()

	gateway := store.NewGateway(db, cfg.DatabaseURL, logger)
	tokens := token.NewManager(cfg.SigningKey, cfg.SessionTTL, cfg.Production())

	auth := service.NewAuthService(gateway, tokens)
	history := service.NewHistoryService(gateway)
	resolver := geoip.NewResolver(geoip.Config{
		IPInfoToken:       cfg.IPInfoToken,
		Timeout:           cfg.ProviderTimeout,
		SyntheticFallback: cfg.SyntheticFallback,
	}, logger)

	// Pages are rendered by the frontend deployment; this process only guards
	// them. Behind the guard there is nothing to serve from here.
	frontend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "frontend not mounted", http.StatusBadGateway)
	})

	router := httpx.NewRouter(httpx.Config{
		ProtectedPrefix: cfg.ProtectedPrefix,
		LoginPath:       cfg.LoginPath,
		CORSOrigins:     cfg.CORSOrigins,
	}, tokens, auth, history, resolver, frontend, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", "error", err)
		}
	}
}

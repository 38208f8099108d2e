package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vidaplena/igreja-admin-go/internal/auth"
	"github.com/vidaplena/igreja-admin-go/internal/config"
	"github.com/vidaplena/igreja-admin-go/internal/domain"
	"github.com/vidaplena/igreja-admin-go/internal/handler"
	"github.com/vidaplena/igreja-admin-go/internal/infra/cache"
	"github.com/vidaplena/igreja-admin-go/internal/infra/observability"
	"github.com/vidaplena/igreja-admin-go/internal/infra/resilience"
	"github.com/vidaplena/igreja-admin-go/internal/infra/supabase"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("profile_cache_ttl", cfg.ProfileCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("resolve_timeout", cfg.ResolveTimeout),
		zap.Duration("trial_sweep_interval", cfg.TrialSweepInterval),
	)

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "igreja-admin")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	profileCache := cache.New[*domain.UserProfile](cfg.ProfileCacheTTL)
	defer profileCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Supabase ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cb,
		resilienceCfg,
		logger,
	)
	verifier := supabase.NewTokenVerifier(cfg.SupabaseJWTSecret)

	// --- Auth core ---
	resolver := auth.NewResolver(supabaseClient, profileCache, logger, metrics)
	trial := auth.NewTrialChecker(supabaseClient, supabaseClient, logger, metrics)
	guard := auth.NewGuard(supabaseClient, logger, metrics)

	nav := auth.NavigatorFunc(func(path string) {
		logger.Info("navegação", zap.String("path", path))
	})

	orch := auth.NewOrchestrator(
		supabaseClient,
		resolver,
		trial,
		nav,
		logger,
		metrics,
		cfg.ResolveTimeout,
	)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	orch.Start(rootCtx)
	defer orch.Stop()

	go trial.RunSweeper(rootCtx, cfg.TrialSweepInterval)

	// --- Router ---
	router := handler.NewRouter(orch, guard, trial, verifier, metrics, logger, cfg.DevMode)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

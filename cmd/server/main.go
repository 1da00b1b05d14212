package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/testcraft-academy/courseflow/internal"
	"github.com/testcraft-academy/courseflow/internal/countdown"
	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/email"
	"github.com/testcraft-academy/courseflow/internal/handler"
	"github.com/testcraft-academy/courseflow/internal/jobs"
	"github.com/testcraft-academy/courseflow/internal/metrics"
	"github.com/testcraft-academy/courseflow/internal/middleware"
	"github.com/testcraft-academy/courseflow/internal/repository"
	"github.com/testcraft-academy/courseflow/internal/service"
	"github.com/testcraft-academy/courseflow/internal/store"
	"github.com/testcraft-academy/courseflow/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)
	subscriptionStore := store.NewPostgres(repo)

	// Initialize email
	sender, err := internal.NewEmailSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("email sender initialization failed: %w", err)
	}
	mailer, err := email.NewMailer(sender, cfg.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("mailer initialization failed: %w", err)
	}

	// Initialize services
	catalog := domain.DefaultCatalog()
	subscriptionService := service.NewSubscriptionService(subscriptionStore, mailer, catalog, logger)
	reminderService := service.NewReminderService(subscriptionStore, mailer, service.ReminderConfig{
		BaseURL:     cfg.BaseURL,
		StaleAfter:  cfg.ReminderStaleAfter,
		Concurrency: cfg.ReminderConcurrency,
	}, logger)

	countdownStore, closeCountdown, err := internal.NewCountdownStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("countdown store initialization failed: %w", err)
	}
	defer closeCountdown()
	countdownService := countdown.NewService(countdownStore, cfg.OfferCountdownDuration, logger)

	archive, err := internal.NewArchive(cfg, logger)
	if err != nil {
		return fmt.Errorf("archive initialization failed: %w", err)
	}

	// Initialize background worker
	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		if workerCfg.StaleJobThreshold <= workerCfg.JobTimeout {
			workerCfg.StaleJobThreshold = workerCfg.JobTimeout + 5*time.Minute
		}

		bgWorker, err = worker.New(worker.NewPostgresQueue(db, repo), workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewReminderSweepHandler(reminderService, archive, logger))
	} else {
		logger.Warn("Background worker disabled, queued reminder sweeps will not run")
	}

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		Logger: logger,
		IsDev:  cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}

	// Initialize middleware
	isSecure := cfg.IsSecure()
	limiter := middleware.NewRateLimiter(cfg.SubscribeRateLimit, cfg.SubscribeRateWindow)
	defer limiter.Close()
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, logger)
	cronAuthMw := middleware.NewCronAuthMiddleware(cfg.CronSecret, logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	clientIPMw, err := middleware.NewClientIPMiddleware(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("METRICS_USERNAME and METRICS_PASSWORD are empty, /metrics is unprotected")
	}
	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET is empty, /cron endpoints are disabled")
	}

	// Initialize handlers
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, catalog, renderer, logger, isSecure)
	courseHandler := handler.NewCourseHandler(catalog, logger)
	countdownHandler := handler.NewCountdownHandler(countdownService, logger, isSecure)
	cronHandler := handler.NewCronHandler(repo, archive, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	healthHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	subscriptionHandler.RegisterRoutes(mux, rateLimitMw.Limit)
	courseHandler.RegisterRoutes(mux)
	countdownHandler.RegisterRoutes(mux)
	cronHandler.RegisterRoutes(mux, cronAuthMw.Handler)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// ==========================================================================
	// Start worker and server
	// ==========================================================================

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if bgWorker != nil {
		bgWorker.Start(workerCtx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.Stack(clientIPMw.Handler, loggingMw.Handler, securityMw.Handler, metrics.Middleware)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
	stop := func(ctx context.Context) error {
		err := server.Shutdown(ctx)
		if bgWorker != nil {
			bgWorker.Stop()
		}
		return err
	}
	return serve(server.ListenAndServe, stop, sigChan, logger)
}

// serve runs listen until a signal arrives or the listener fails, then calls
// stop with a 30 second deadline. A listener failure is returned after stop
// so the process exits non-zero.
func serve(listen func() error, stop func(context.Context) error, sigChan <-chan os.Signal, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	var runErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case runErr = <-serverErr:
		logger.Error("Server failed", "error", runErr)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("server failed: %w", runErr)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

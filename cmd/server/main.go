package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inboxpilot/inboxpilot/internal"
	"github.com/inboxpilot/inboxpilot/internal/ai"
	"github.com/inboxpilot/inboxpilot/internal/ai/anthropic"
	aimock "github.com/inboxpilot/inboxpilot/internal/ai/mock"
	"github.com/inboxpilot/inboxpilot/internal/billing"
	"github.com/inboxpilot/inboxpilot/internal/domain"
	"github.com/inboxpilot/inboxpilot/internal/handler"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
	"github.com/inboxpilot/inboxpilot/internal/mailbox/gmail"
	mailmock "github.com/inboxpilot/inboxpilot/internal/mailbox/mock"
	"github.com/inboxpilot/inboxpilot/internal/metrics"
	"github.com/inboxpilot/inboxpilot/internal/middleware"
	"github.com/inboxpilot/inboxpilot/internal/repository"
	"github.com/inboxpilot/inboxpilot/internal/service"
	"github.com/inboxpilot/inboxpilot/internal/storage"
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
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize AI provider
	var summarizer ai.Summarizer
	if cfg.AIProvider == "anthropic" {
		summarizer, err = anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("anthropic provider initialization failed: %w", err)
		}
	} else {
		summarizer = aimock.New(logger)
		logger.Warn("Using mock AI provider")
	}

	// Initialize mailbox source
	var (
		source      mailbox.Source
		gmailClient *gmail.Client
	)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		gmailClient, err = gmail.New(gmail.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/mailbox/callback",
		}, logger)
		if err != nil {
			return fmt.Errorf("gmail client initialization failed: %w", err)
		}
		source = gmailClient
	} else {
		source = &mailmock.Source{}
		logger.Warn("Google OAuth credentials not set, using mock mailbox source")
	}

	// Initialize object storage
	var store storage.Storage
	if cfg.StorageProvider == storage.ProviderR2 {
		store, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	} else {
		store, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize billing providers
	stripeService := billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
		StarterMonthlyPriceID:      cfg.StripeStarterMonthlyPriceID,
		StarterYearlyPriceID:       cfg.StripeStarterYearlyPriceID,
		ProfessionalMonthlyPriceID: cfg.StripeProfessionalMonthlyPriceID,
		ProfessionalYearlyPriceID:  cfg.StripeProfessionalYearlyPriceID,
		BusinessMonthlyPriceID:     cfg.StripeBusinessMonthlyPriceID,
		BusinessYearlyPriceID:      cfg.StripeBusinessYearlyPriceID,
	})
	lemonService := billing.NewLemonService(cfg.LemonSqueezySigningSecret)

	// Initialize services
	catalog := domain.DefaultCatalog()
	userService := service.NewUserService(repo.Users, repo.Sessions, logger)
	usageService := service.NewUsageService(repo.Usage, logger)
	quotaService := service.NewQuotaService(catalog, usageService, logger)
	retentionService := service.NewRetentionService(catalog, repo.Users, repo.Emails, usageService, logger)
	syncService := service.NewSyncService(source, summarizer, quotaService, usageService, retentionService, repo.Emails, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, quotaService, logger, isSecure)
	syncHandler := handler.NewSyncHandler(syncService, logger)
	emailHandler := handler.NewEmailHandler(repo.Emails, logger)
	usageHandler := handler.NewUsageHandler(usageService, quotaService, logger)
	cleanupHandler := handler.NewCleanupHandler(retentionService, catalog, logger)
	cronHandler := handler.NewCronHandler(retentionService, userService, cfg.CronSecret, logger)
	exportHandler := handler.NewExportHandler(repo.Emails, usageService, store, logger)
	billingHandler := handler.NewBillingHandler(stripeService, repo.Users, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(stripeService, lemonService, userService, repo.Users, repo.BillingEvents, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Local export downloads (development)
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Auth routes (public, rate limited)
	mux.Handle("POST /api/auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.HandleLogin)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)

	// Billing webhooks (public, signature verified)
	mux.HandleFunc("POST /webhooks/stripe", webhookHandler.HandleStripe)
	mux.HandleFunc("POST /webhooks/lemonsqueezy", webhookHandler.HandleLemonSqueezy)

	// Scheduled maintenance (bearer secret)
	mux.HandleFunc("GET /api/cron/cleanup", cronHandler.HandleSweepAll)
	mux.HandleFunc("POST /api/cron/sessions", cronHandler.HandleSessionCleanup)

	// Create middleware stack for protected routes
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)

	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(authHandler.HandleMe)))
	mux.Handle("POST /api/sync", requireUser(http.HandlerFunc(syncHandler.HandleSync)))
	mux.Handle("GET /api/emails", requireUser(http.HandlerFunc(emailHandler.HandleList)))
	mux.Handle("POST /api/emails/{id}/read", requireUser(http.HandlerFunc(emailHandler.HandleMarkRead)))
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(usageHandler.HandleUsage)))
	mux.Handle("POST /api/emails/cleanup", requireUser(http.HandlerFunc(cleanupHandler.HandleCleanup)))
	mux.Handle("GET /api/emails/cleanup", requireUser(http.HandlerFunc(cleanupHandler.HandleStatus)))
	mux.Handle("GET /api/export", requireUser(http.HandlerFunc(exportHandler.HandleExport)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(billingHandler.HandleCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(billingHandler.HandlePortal)))

	// Gmail connect flow (requires OAuth credentials)
	if gmailClient != nil {
		mailboxHandler := handler.NewMailboxHandler(gmailClient, userService, logger, isSecure)
		mux.Handle("GET /api/mailbox/connect", requireUser(http.HandlerFunc(mailboxHandler.HandleConnect)))
		mux.Handle("GET /api/mailbox/callback", requireUser(http.HandlerFunc(mailboxHandler.HandleCallback)))
	}

	// Prometheus metrics (basic auth)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Global middleware chain
	root := middleware.Stack(
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

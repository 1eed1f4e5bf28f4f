package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/config"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/internal/infrastructure/cache"
	"github.com/sangkips/invoicely-api/internal/infrastructure/database"
	"github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/internal/observability/metrics"
	"github.com/sangkips/invoicely-api/internal/presentation/http/handler"
	"github.com/sangkips/invoicely-api/internal/presentation/http/middleware"
	"github.com/sangkips/invoicely-api/internal/presentation/http/routes"
	"github.com/sangkips/invoicely-api/pkg/email"
	"github.com/sangkips/invoicely-api/pkg/oauth"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"go.uber.org/zap"
)

const (
	shutdownTimeout      = 15 * time.Second
	idempotencySweepTick = time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "invoicely: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Env,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Open(&cfg.Database, cfg.App.Debug)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(context.Background(), db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := database.SeedDefaultData(db, cfg.Admin); err != nil {
		log.Warn("failed to seed default data", zap.Error(err))
	}

	// Optional Redis for the dashboard cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, dashboard cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}
	dashboardCache := cache.NewDashboardCache(redisClient, cfg.Redis.DashboardTTL)

	// Metrics
	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
		gatherer = registry
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.RefreshExpiry)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	emailService := email.NewEmailService(email.EmailConfig{
		SMTPHost:     cfg.SMTP.Host,
		SMTPPort:     cfg.SMTP.Port,
		SMTPUsername: cfg.SMTP.Username,
		SMTPPassword: cfg.SMTP.Password,
		FromName:     cfg.SMTP.FromName,
		FromEmail:    cfg.SMTP.FromEmail,
		FrontendURL:  cfg.App.FrontendURL,
	})
	var notifier email.InvoiceSender
	if emailService.IsConfigured() {
		notifier = emailService
	} else {
		log.Info("smtp not configured, invoice emails disabled")
	}

	googleOAuth := oauth.NewGoogleOAuthService(oauth.GoogleOAuthConfig{
		ClientID:           cfg.Google.ClientID,
		ClientSecret:       cfg.Google.ClientSecret,
		RedirectURL:        cfg.Google.RedirectURL,
		FrontendSuccessURL: cfg.Google.FrontendSuccessURL,
		FrontendErrorURL:   cfg.Google.FrontendErrorURL,
	})

	// Initialize services
	authService := service.NewAuthService(userRepo, tenantRepo, jwtManager)
	tenantService := service.NewTenantService(tenantRepo, userRepo)
	clientService := service.NewClientService(clientRepo, invoiceRepo)
	invoiceService := service.NewInvoiceService(invoiceRepo, clientRepo, tenantRepo, notifier, dashboardCache, m, cfg.Billing)
	dashboardService := service.NewDashboardService(analyticsRepo, invoiceRepo, tenantRepo, dashboardCache, m)
	reportService := service.NewReportService(invoiceRepo)

	handlers := &routes.Handlers{
		Auth:      handler.NewAuthHandler(authService, googleOAuth, cfg.IsProduction()),
		Tenant:    handler.NewTenantHandler(tenantService),
		Client:    handler.NewClientHandler(clientService),
		Invoice:   handler.NewInvoiceHandler(invoiceService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Report:    handler.NewReportHandler(reportService),
	}

	rateLimiter := middleware.NewTenantRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit.Requests, cfg.RateLimit.Duration))
	defer rateLimiter.Stop()

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		Logger:          log,
		TenantRepo:      tenantRepo,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
		Metrics:         m,
		Gatherer:        gatherer,
	})

	go sweepIdempotencyKeys(ctx, idempotencyRepo, log)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("db_driver", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepIdempotencyKeys removes expired replay records until ctx is cancelled.
func sweepIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, log *zap.Logger) {
	ticker := time.NewTicker(idempotencySweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Warn("failed to delete expired idempotency keys", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("deleted expired idempotency keys", zap.Int64("count", n))
			}
		}
	}
}

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sangkips/invoicely-api/internal/config"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/internal/observability/metrics"
	"github.com/sangkips/invoicely-api/internal/presentation/http/handler"
	"github.com/sangkips/invoicely-api/internal/presentation/http/middleware"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth      *handler.AuthHandler
	Tenant    *handler.TenantHandler
	Client    *handler.ClientHandler
	Invoice   *handler.InvoiceHandler
	Dashboard *handler.DashboardHandler
	Report    *handler.ReportHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	Logger          *zap.Logger
	TenantRepo      domainRepo.TenantRepository
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.TenantRateLimiter
	Metrics         *metrics.Metrics
	// Gatherer backs the metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(deps.Metrics.GinMiddleware())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	if deps.Cfg.Metrics.Enabled && deps.Gatherer != nil {
		router.GET(deps.Cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		registerAuthRoutes(v1, h)

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		registerAccountRoutes(protected, h)

		// Tenant-scoped routes
		scoped := protected.Group("")
		scoped.Use(middleware.TenantMiddleware(deps.TenantRepo, deps.Cfg.App.BaseDomain))
		if deps.RateLimiter != nil {
			scoped.Use(deps.RateLimiter.Middleware())
		}
		registerScopedRoutes(scoped, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/refresh", h.Auth.RefreshToken)
		// Google OAuth routes
		auth.GET("/google", h.Auth.GoogleAuth)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
	}
}

// registerAccountRoutes covers routes that act on the user rather than a tenant.
func registerAccountRoutes(protected *gin.RouterGroup, h *Handlers) {
	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/profile", h.Auth.GetProfile)
	protected.PUT("/profile", h.Auth.UpdateProfile)
	protected.PUT("/profile/password", h.Auth.ChangePassword)

	protected.GET("/tenants", h.Tenant.ListTenants)
	protected.POST("/tenants", h.Tenant.CreateTenant)
}

func registerScopedRoutes(scoped *gin.RouterGroup, h *Handlers, deps *Deps) {
	// Current tenant
	tenant := scoped.Group("/tenant")
	{
		tenant.GET("", h.Tenant.GetCurrentTenant)
		tenant.GET("/members", h.Tenant.ListMembers)

		manage := tenant.Group("")
		manage.Use(middleware.RequirePermission(entity.PermManageTenant))
		manage.PUT("", h.Tenant.UpdateTenant)
		manage.POST("/members", h.Tenant.InviteMember)
		manage.DELETE("/members/:user_id", h.Tenant.RemoveMember)
	}

	// Dashboard
	scoped.GET("/dashboard", middleware.RequirePermission(entity.PermViewDashboard), h.Dashboard.GetStats)

	// Clients
	clients := scoped.Group("/clients")
	clients.Use(middleware.RequirePermission(entity.PermManageClients))
	{
		clients.GET("", h.Client.List)
		clients.POST("", h.Client.Create)
		clients.GET("/:id", h.Client.Get)
		clients.PUT("/:id", h.Client.Update)
		clients.DELETE("/:id", h.Client.Delete)
	}

	// Invoices
	invoices := scoped.Group("/invoices")
	invoices.Use(middleware.RequirePermission(entity.PermManageInvoices))
	{
		invoices.GET("", h.Invoice.List)
		invoices.POST("", middleware.Idempotency(middleware.IdempotencyConfig{
			Repo: deps.IdempotencyRepo,
			TTL:  deps.Cfg.Idempotency.TTL,
		}), h.Invoice.Create)
		invoices.POST("/preview", h.Invoice.Preview)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.PUT("/:id", h.Invoice.Update)
		invoices.PATCH("/:id/status", h.Invoice.UpdateStatus)
		invoices.POST("/:id/send", h.Invoice.Send)
		invoices.DELETE("/:id", h.Invoice.Delete)
	}

	// Reports
	reports := scoped.Group("/reports")
	reports.Use(middleware.RequirePermission(entity.PermViewReports))
	{
		reports.GET("/invoices.xlsx", h.Report.ExportInvoices)
	}
}

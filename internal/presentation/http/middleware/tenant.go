package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/response"
	"go.uber.org/zap"
)

// TenantIDHeader selects the tenant when the request has no tenant subdomain.
const TenantIDHeader = "X-Tenant-ID"

var errNoSubdomain = errors.New("no tenant subdomain")

// ExtractTenantFromHost returns the left-most label of host when host is a
// subdomain of baseDomain, e.g. "acme.invoicely.app" -> "acme".
func ExtractTenantFromHost(host, baseDomain string) (string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	baseDomain = strings.ToLower(strings.TrimPrefix(baseDomain, "."))

	if baseDomain == "" || !strings.HasSuffix(host, "."+baseDomain) {
		return "", errNoSubdomain
	}
	sub := strings.TrimSuffix(host, "."+baseDomain)
	if sub == "" || sub == "www" || sub == "api" || strings.Contains(sub, ".") {
		return "", errNoSubdomain
	}
	return sub, nil
}

// TenantMiddleware resolves the tenant from the subdomain or the X-Tenant-ID
// header, checks the authenticated user's membership and stores the tenant in
// both the gin context and the request context.
func TenantMiddleware(tenantRepo repository.TenantRepository, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var tenant *entity.Tenant
		var err error
		if slug, subErr := ExtractTenantFromHost(c.Request.Host, baseDomain); subErr == nil {
			tenant, err = tenantRepo.GetBySlug(ctx, slug)
		} else if raw := c.GetHeader(TenantIDHeader); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				response.BadRequest(c, "Invalid X-Tenant-ID header")
				c.Abort()
				return
			}
			tenant, err = tenantRepo.GetByID(ctx, id)
		} else {
			response.BadRequest(c, "Tenant context required")
			c.Abort()
			return
		}

		if err != nil {
			logger.FromContext(ctx).Error("failed to resolve tenant", zap.Error(err))
			response.ErrorWithCode(c, http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}
		if tenant == nil {
			response.NotFound(c, "Tenant not found")
			c.Abort()
			return
		}

		if userID, ok := c.Get("user_id"); ok {
			id, _ := userID.(uuid.UUID)
			isMember, err := tenantRepo.IsMember(ctx, tenant.ID, id)
			if err != nil {
				logger.FromContext(ctx).Error("failed to check tenant membership", zap.Error(err))
				response.ErrorWithCode(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
				return
			}
			if !isMember && !hasAny(c, "user_roles", entity.RoleSuperAdmin) {
				response.Forbidden(c, "Access denied to this tenant")
				c.Abort()
				return
			}
		}

		c.Set("tenant_id", tenant.ID)
		c.Set("tenant", tenant)

		ctx = infraRepo.WithTenant(ctx, tenant.ID)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("tenant_id", tenant.ID.String())))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) uuid.UUID {
	tenantID, exists := c.Get("tenant_id")
	if !exists {
		return uuid.Nil
	}
	id, ok := tenantID.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

// GetTenant retrieves the resolved tenant from gin context
func GetTenant(c *gin.Context) *entity.Tenant {
	tenant, exists := c.Get("tenant")
	if !exists {
		return nil
	}
	t, _ := tenant.(*entity.Tenant)
	return t
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/config"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTenantRepo struct {
	repository.TenantRepository
	tenants []*entity.Tenant
	members map[uuid.UUID][]uuid.UUID
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	for _, t := range r.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRepo) IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	for _, id := range r.members[tenantID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeIdempotencyRepo struct {
	mu   sync.Mutex
	keys map[string]*entity.IdempotencyKey
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{keys: map[string]*entity.IdempotencyKey{}}
}

func (r *fakeIdempotencyRepo) GetByKey(ctx context.Context, key string, userID, tenantID uuid.UUID) (*entity.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[tenantID.String()+"/"+userID.String()+"/"+key], nil
}

func (r *fakeIdempotencyRepo) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[ikey.TenantID.String()+"/"+ikey.UserID.String()+"/"+ikey.Key] = ikey
	return nil
}

func (r *fakeIdempotencyRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// withUser stands in for AuthMiddleware.
func withUser(userID uuid.UUID, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_roles", roles)
		c.Set("user_permissions", []string{})
		c.Next()
	}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtractTenantFromHost(t *testing.T) {
	tests := []struct {
		host    string
		want    string
		wantErr bool
	}{
		{host: "acme.invoicely.app", want: "acme"},
		{host: "ACME.invoicely.app:8080", want: "acme"},
		{host: "invoicely.app", wantErr: true},
		{host: "www.invoicely.app", wantErr: true},
		{host: "api.invoicely.app", wantErr: true},
		{host: "a.b.invoicely.app", wantErr: true},
		{host: "acme.example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := ExtractTenantFromHost(tt.host, "invoicely.app")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtManager), func(c *gin.Context) {
		id, _ := c.Get("user_id")
		c.String(http.StatusOK, id.(uuid.UUID).String())
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	refresh, err := jwtManager.GenerateRefreshToken(userID)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	access, err := jwtManager.GenerateAccessToken(userID, "ada@invoicely.test", []string{entity.RoleAdmin}, nil)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestRequirePermission(t *testing.T) {
	handler := func(roles, perms []string) *gin.Engine {
		r := gin.New()
		r.GET("/invoices", func(c *gin.Context) {
			c.Set("user_roles", roles)
			c.Set("user_permissions", perms)
			c.Next()
		}, RequirePermission(entity.PermManageInvoices), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	req := func() *http.Request { return httptest.NewRequest(http.MethodGet, "/invoices", nil) }
	assert.Equal(t, http.StatusForbidden, serve(handler([]string{entity.RoleViewer}, []string{entity.PermViewDashboard}), req()).Code)
	assert.Equal(t, http.StatusOK, serve(handler([]string{entity.RoleAccountant}, []string{entity.PermManageInvoices}), req()).Code)
	assert.Equal(t, http.StatusOK, serve(handler([]string{entity.RoleSuperAdmin}, nil), req()).Code)
}

func TestTenantMiddleware(t *testing.T) {
	member := uuid.New()
	outsider := uuid.New()
	acme := &entity.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	repo := &fakeTenantRepo{
		tenants: []*entity.Tenant{acme},
		members: map[uuid.UUID][]uuid.UUID{acme.ID: {member}},
	}

	router := func(userID uuid.UUID, roles ...string) *gin.Engine {
		r := gin.New()
		r.GET("/tenant", withUser(userID, roles...), TenantMiddleware(repo, "invoicely.app"), func(c *gin.Context) {
			fromCtx, ok := infraRepo.GetTenantID(c.Request.Context())
			if !ok || fromCtx != GetTenantID(c) {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.String(http.StatusOK, GetTenant(c).Slug)
		})
		return r
	}

	t.Run("subdomain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://acme.invoicely.app/tenant", nil)
		w := serve(router(member), req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "acme", w.Body.String())
	})

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Header.Set(TenantIDHeader, acme.ID.String())
		assert.Equal(t, http.StatusOK, serve(router(member), req).Code)
	})

	t.Run("no tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		assert.Equal(t, http.StatusBadRequest, serve(router(member), req).Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Header.Set(TenantIDHeader, "acme")
		assert.Equal(t, http.StatusBadRequest, serve(router(member), req).Code)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://globex.invoicely.app/tenant", nil)
		assert.Equal(t, http.StatusNotFound, serve(router(member), req).Code)
	})

	t.Run("not a member", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://acme.invoicely.app/tenant", nil)
		assert.Equal(t, http.StatusForbidden, serve(router(outsider), req).Code)
	})

	t.Run("super admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://acme.invoicely.app/tenant", nil)
		assert.Equal(t, http.StatusOK, serve(router(outsider, entity.RoleSuperAdmin), req).Code)
	})
}

func TestTenantRateLimiter(t *testing.T) {
	rl := NewTenantRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	defer rl.Stop()

	tenantA, tenantB := uuid.New(), uuid.New()
	r := gin.New()
	r.GET("/ping", func(c *gin.Context) {
		if raw := c.Query("tenant"); raw != "" {
			c.Set("tenant_id", uuid.MustParse(raw))
		}
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(tenant uuid.UUID) int {
		return serve(r, httptest.NewRequest(http.MethodGet, "/ping?tenant="+tenant.String(), nil)).Code
	}

	assert.Equal(t, http.StatusOK, call(tenantA))
	assert.Equal(t, http.StatusOK, call(tenantA))
	assert.Equal(t, http.StatusTooManyRequests, call(tenantA))
	assert.Equal(t, http.StatusOK, call(tenantB))
	assert.Equal(t, 2, rl.ActiveKeys())

	rl.now = func() time.Time { return time.Now().Add(time.Hour) }
	rl.cleanup()
	assert.Equal(t, 0, rl.ActiveKeys())
}

func TestRateLimiterConfigFrom(t *testing.T) {
	cfg := RateLimiterConfigFrom(120, 60)
	assert.Equal(t, 2.0, cfg.RequestsPerSecond)
	assert.Equal(t, 120, cfg.BurstSize)

	cfg = RateLimiterConfigFrom(0, 0)
	assert.Equal(t, 100, cfg.BurstSize)
}

func TestIdempotencyReplaysSuccessfulResponse(t *testing.T) {
	repo := newFakeIdempotencyRepo()
	userID := uuid.New()
	calls := 0

	r := gin.New()
	r.POST("/invoices", withUser(userID), Idempotency(IdempotencyConfig{Repo: repo}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		return serve(r, req)
	}

	first := post("k-1", `{"invoice_number":"INV-1"}`)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.JSONEq(t, `{"call":1}`, first.Body.String())

	replay := post("k-1", `{"invoice_number":"INV-1"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(IdempotencyReplayedHeader))
	assert.JSONEq(t, `{"call":1}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	conflict := post("k-1", `{"invoice_number":"INV-2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, conflict.Code)

	noKey := post("", `{"invoice_number":"INV-1"}`)
	assert.Equal(t, http.StatusCreated, noKey.Code)
	assert.Equal(t, 2, calls)

	tooLong := post(strings.Repeat("k", 256), `{}`)
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)
}

func TestIdempotencyKeysAreScopedToTenant(t *testing.T) {
	repo := newFakeIdempotencyRepo()
	userID := uuid.New()
	calls := 0

	r := gin.New()
	r.POST("/invoices", withUser(userID), func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(TenantIDHeader))
		require.NoError(t, err)
		c.Set("tenant_id", id)
		c.Next()
	}, Idempotency(IdempotencyConfig{Repo: repo}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"tenant": GetTenantID(c), "call": calls})
	})

	post := func(tenantID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"invoice_number":"INV-1"}`))
		req.Header.Set(IdempotencyKeyHeader, "shared-key")
		req.Header.Set(TenantIDHeader, tenantID.String())
		return serve(r, req)
	}

	acme, globex := uuid.New(), uuid.New()
	first := post(acme)
	require.Equal(t, http.StatusCreated, first.Code)

	other := post(globex)
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Empty(t, other.Header().Get(IdempotencyReplayedHeader))
	assert.Contains(t, other.Body.String(), globex.String())
	assert.Equal(t, 2, calls)

	replay := post(acme)
	assert.Equal(t, "true", replay.Header().Get(IdempotencyReplayedHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 2, calls)
}

func TestIdempotencySkipsFailedResponses(t *testing.T) {
	repo := newFakeIdempotencyRepo()
	userID := uuid.New()
	fail := true

	r := gin.New()
	r.POST("/invoices", withUser(userID), Idempotency(IdempotencyConfig{Repo: repo, TTL: time.Minute}), func(c *gin.Context) {
		if fail {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "retry-me")
		return serve(r, req)
	}

	assert.Equal(t, http.StatusBadRequest, send().Code)
	assert.Empty(t, repo.keys)

	fail = false
	assert.Equal(t, http.StatusCreated, send().Code)
	assert.Len(t, repo.keys, 1)
}

func TestCORSAllowsTenantAndIdempotencyHeaders(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"https://app.invoicely.test"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.POST("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/invoices", nil)
	req.Header.Set("Origin", "https://app.invoicely.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, allowed, "idempotency-key")
	assert.Contains(t, allowed, "x-tenant-id")
	assert.Equal(t, "https://app.invoicely.test", w.Header().Get("Access-Control-Allow-Origin"))
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
)

// TenantRepository defines the interface for tenant data operations
type TenantRepository interface {
	Create(ctx context.Context, tenant *entity.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error)
	// GetBySlug resolves the subdomain identifier.
	GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error)
	Update(ctx context.Context, tenant *entity.Tenant) error
	GetUserTenants(ctx context.Context, userID uuid.UUID) ([]entity.Tenant, error)
	AddMember(ctx context.Context, membership *entity.TenantMembership) error
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
	GetMembers(ctx context.Context, tenantID uuid.UUID) ([]entity.TenantMembership, error)
	IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

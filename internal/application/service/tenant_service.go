package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/utils"
)

// TenantService handles tenant-related operations
type TenantService struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
}

// NewTenantService creates a new tenant service
func NewTenantService(tenantRepo repository.TenantRepository, userRepo repository.UserRepository) *TenantService {
	return &TenantService{tenantRepo: tenantRepo, userRepo: userRepo}
}

// CreateTenantInput represents input for creating a tenant
type CreateTenantInput struct {
	Name     string
	OwnerID  uuid.UUID
	Email    *string
	Settings *entity.TenantSettings
}

// CreateTenant creates a tenant with a unique slug derived from its name and
// makes the owner its first member.
func (s *TenantService) CreateTenant(ctx context.Context, input *CreateTenantInput) (*entity.Tenant, error) {
	return createTenant(ctx, s.tenantRepo, input)
}

func createTenant(ctx context.Context, tenantRepo repository.TenantRepository, input *CreateTenantInput) (*entity.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewMissingFieldsError([]string{"name"})
	}

	slug, err := uniqueSlug(ctx, tenantRepo, name)
	if err != nil {
		return nil, err
	}

	settings := entity.DefaultTenantSettings()
	if input.Settings != nil {
		settings = *input.Settings
	}

	tenant := &entity.Tenant{
		Name:     name,
		Slug:     slug,
		OwnerID:  input.OwnerID,
		Email:    input.Email,
		Settings: settings,
	}
	if err := tenantRepo.Create(ctx, tenant); err != nil {
		return nil, apperror.NewPersistenceError("create tenant", err)
	}

	membership := &entity.TenantMembership{
		TenantID: tenant.ID,
		UserID:   input.OwnerID,
		Role:     entity.MembershipOwner,
	}
	if err := tenantRepo.AddMember(ctx, membership); err != nil {
		return nil, apperror.NewPersistenceError("add tenant owner", err)
	}

	return tenant, nil
}

// uniqueSlug appends -2, -3 ... until the slug is free.
func uniqueSlug(ctx context.Context, tenantRepo repository.TenantRepository, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "tenant"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := tenantRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", apperror.NewPersistenceError("check tenant slug", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// GetTenant retrieves a tenant by ID
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NewPersistenceError("load tenant", err)
	}
	if tenant == nil {
		return nil, apperror.NewNotFoundError("Tenant")
	}
	return tenant, nil
}

// GetUserTenants retrieves all tenants a user belongs to
func (s *TenantService) GetUserTenants(ctx context.Context, userID uuid.UUID) ([]entity.Tenant, error) {
	return s.tenantRepo.GetUserTenants(ctx, userID)
}

// UpdateTenantInput represents input for updating a tenant
type UpdateTenantInput struct {
	ID       uuid.UUID
	Name     string
	Email    *string
	Address  *string
	Settings *entity.TenantSettings
}

// UpdateTenant updates a tenant
func (s *TenantService) UpdateTenant(ctx context.Context, input *UpdateTenantInput) (*entity.Tenant, error) {
	tenant, err := s.GetTenant(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		tenant.Name = strings.TrimSpace(input.Name)
	}
	if input.Email != nil {
		tenant.Email = input.Email
	}
	if input.Address != nil {
		tenant.Address = input.Address
	}
	if input.Settings != nil {
		settings := *input.Settings
		if err := validateSettings(&settings); err != nil {
			return nil, err
		}
		tenant.Settings = settings
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, apperror.NewPersistenceError("update tenant", err)
	}
	return tenant, nil
}

func validateSettings(settings *entity.TenantSettings) error {
	var errs []apperror.FieldError
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if settings.Currency != "" && !validCurrency(settings.Currency) {
		errs = append(errs, apperror.FieldError{Field: "settings.currency", Message: "must be a 3-letter currency code"})
	}
	if settings.DefaultTaxRate < 0 {
		errs = append(errs, apperror.FieldError{Field: "settings.default_tax_rate", Message: "must not be negative"})
	}
	if settings.PaymentTermsDays < 0 {
		errs = append(errs, apperror.FieldError{Field: "settings.payment_terms_days", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return apperror.NewValidationError(errs)
	}
	return nil
}

// InviteMemberInput represents input for adding an existing user to a tenant
type InviteMemberInput struct {
	TenantID uuid.UUID
	Email    string
	Role     string
}

// InviteMember adds a registered user to a tenant
func (s *TenantService) InviteMember(ctx context.Context, input *InviteMemberInput) (*entity.TenantMembership, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}

	isMember, err := s.tenantRepo.IsMember(ctx, input.TenantID, user.ID)
	if err != nil {
		return nil, apperror.NewPersistenceError("check membership", err)
	}
	if isMember {
		return nil, apperror.NewConflictError("User is already a member of this tenant")
	}

	role := input.Role
	switch role {
	case "":
		role = entity.MembershipMember
	case entity.MembershipAdmin, entity.MembershipMember:
	default:
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "role", Message: "must be admin or member"},
		})
	}

	membership := &entity.TenantMembership{
		TenantID: input.TenantID,
		UserID:   user.ID,
		Role:     role,
	}
	if err := s.tenantRepo.AddMember(ctx, membership); err != nil {
		return nil, apperror.NewPersistenceError("add member", err)
	}
	membership.User = *user
	membership.PopulateUserDetails()
	return membership, nil
}

// RemoveMember removes a user from a tenant. The owner cannot be removed.
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerID == userID {
		return apperror.NewBadRequestError("The tenant owner cannot be removed")
	}
	if err := s.tenantRepo.RemoveMember(ctx, tenantID, userID); err != nil {
		return apperror.NewPersistenceError("remove member", err)
	}
	return nil
}

// GetTenantMembers retrieves all members of a tenant
func (s *TenantService) GetTenantMembers(ctx context.Context, tenantID uuid.UUID) ([]entity.TenantMembership, error) {
	members, err := s.tenantRepo.GetMembers(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for i := range members {
		members[i].PopulateUserDetails()
	}

	return members, nil
}

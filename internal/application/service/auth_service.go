package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/oauth"
	"github.com/sangkips/invoicely-api/pkg/utils"
	"go.uber.org/zap"
)

const providerGoogle = "google"

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	jwtManager *utils.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	jwtManager *utils.JWTManager,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		jwtManager: jwtManager,
	}
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput represents the login output
type LoginOutput struct {
	User         *entity.User
	Tenants      []entity.Tenant
	AccessToken  string
	RefreshToken string
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user == nil || user.Password == "" {
		return nil, apperror.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user.ID)
}

// issueTokens reloads the user with roles and signs a fresh token pair.
func (s *AuthService) issueTokens(ctx context.Context, userID uuid.UUID) (*LoginOutput, error) {
	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user roles", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, roles, user.GetPermissions())
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	tenants, err := s.tenantRepo.GetUserTenants(ctx, user.ID)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user tenants", err)
	}

	return &LoginOutput{
		User:         user,
		Tenants:      tenants,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RegisterInput represents the registration input
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	CompanyName string
}

// Register creates a user account together with the first tenant it owns.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*LoginOutput, error) {
	address := strings.ToLower(strings.TrimSpace(input.Email))
	existingUser, err := s.userRepo.GetByEmail(ctx, address)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if existingUser != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     address,
		Password:  hashedPassword,
		Provider:  "local",
	}
	if err := s.onboard(ctx, user, input.CompanyName); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user.ID)
}

// onboard stores a new user, grants the admin role and creates their tenant.
func (s *AuthService) onboard(ctx context.Context, user *entity.User, companyName string) error {
	if err := s.userRepo.Create(ctx, user); err != nil {
		return apperror.NewPersistenceError("create user", err)
	}

	if err := s.userRepo.AssignRole(ctx, user.ID, entity.RoleAdmin); err != nil {
		logger.FromContext(ctx).Warn("failed to assign default role",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	name := strings.TrimSpace(companyName)
	if name == "" {
		name = user.FullName()
	}
	email := user.Email
	_, err := createTenant(ctx, s.tenantRepo, &CreateTenantInput{
		Name:    name,
		OwnerID: user.ID,
		Email:   &email,
	})
	return err
}

// RefreshToken generates new tokens from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginOutput, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	return s.issueTokens(ctx, userID)
}

// GetCurrentUser returns the current user by ID
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

// ChangePasswordInput represents the change password input
type ChangePasswordInput struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// ChangePassword changes the user's password
func (s *AuthService) ChangePassword(ctx context.Context, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return apperror.NewPersistenceError("load user", err)
	}
	if user == nil {
		return apperror.NewNotFoundError("User")
	}

	// Accounts created through Google have no password yet.
	if user.Password != "" && !utils.CheckPasswordHash(input.CurrentPassword, user.Password) {
		return apperror.NewValidationError([]apperror.FieldError{
			{Field: "current_password", Message: "is incorrect"},
		})
	}

	hashedPassword, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return apperror.NewPersistenceError("update password", err)
	}
	return nil
}

// UpdateProfileInput represents the update profile input
type UpdateProfileInput struct {
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Photo     *string
}

// UpdateProfile updates the user's profile
func (s *AuthService) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.Photo != nil {
		user.Photo = input.Photo
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperror.NewPersistenceError("update profile", err)
	}
	return user, nil
}

// GoogleLogin signs in with a verified Google profile. Unknown accounts are
// registered with a tenant of their own; an existing local account with the
// same email is linked.
func (s *AuthService) GoogleLogin(ctx context.Context, info *oauth.GoogleUserInfo) (*LoginOutput, error) {
	user, err := s.userRepo.GetByProviderID(ctx, providerGoogle, info.ID)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user != nil {
		return s.issueTokens(ctx, user.ID)
	}

	address := strings.ToLower(strings.TrimSpace(info.Email))
	providerID := info.ID
	now := time.Now()

	user, err = s.userRepo.GetByEmail(ctx, address)
	if err != nil {
		return nil, apperror.NewPersistenceError("load user", err)
	}
	if user != nil {
		user.Provider = providerGoogle
		user.ProviderID = &providerID
		if user.EmailVerifiedAt == nil {
			user.EmailVerifiedAt = &now
		}
		if user.Photo == nil && info.Picture != "" {
			user.Photo = &info.Picture
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, apperror.NewPersistenceError("link google account", err)
		}
		return s.issueTokens(ctx, user.ID)
	}

	first, last := info.Names()
	user = &entity.User{
		FirstName:       first,
		LastName:        last,
		Email:           address,
		Provider:        providerGoogle,
		ProviderID:      &providerID,
		EmailVerifiedAt: &now,
	}
	if info.Picture != "" {
		user.Photo = &info.Picture
	}
	if err := s.onboard(ctx, user, ""); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user.ID)
}

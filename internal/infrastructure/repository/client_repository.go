package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/pkg/pagination"
	"gorm.io/gorm"
)

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) domainRepo.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &client, err
}

func (r *clientRepository) GetByEmail(ctx context.Context, email string) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).First(&client, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &client, err
}

func (r *clientRepository) Update(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(TenantScope(ctx)).Delete(&entity.Client{}, "id = ?", id).Error
}

func (r *clientRepository) searchQuery(ctx context.Context, search string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Client{}).Scopes(TenantScope(ctx))
	if search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	return query
}

func (r *clientRepository) List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Client, int64, error) {
	var clients []entity.Client
	var total int64

	query := r.searchQuery(ctx, search)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&clients).Error

	return clients, total, err
}

// ListWithCursor walks clients newest first using (created_at, id) as the key.
func (r *clientRepository) ListWithCursor(ctx context.Context, params *pagination.CursorParams, search string) ([]entity.Client, error) {
	var clients []entity.Client

	params.Validate()
	cursor, err := params.Decode()
	if err != nil {
		return nil, err
	}

	query := r.searchQuery(ctx, search)
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	err = query.Limit(params.Limit + 1).
		Order("created_at DESC").
		Order("id DESC").
		Find(&clients).Error
	return clients, err
}

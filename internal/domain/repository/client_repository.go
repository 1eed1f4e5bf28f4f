package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	// GetByID returns nil, nil when the client does not exist in the current tenant.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error)
	GetByEmail(ctx context.Context, email string) (*entity.Client, error)
	Update(ctx context.Context, client *entity.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Client, int64, error)
	// ListWithCursor fetches limit+1 rows so the caller can detect a next page.
	ListWithCursor(ctx context.Context, params *pagination.CursorParams, search string) ([]entity.Client, error)
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
)

// IdempotencyRepository stores replayable responses keyed by client-supplied keys.
type IdempotencyRepository interface {
	// GetByKey returns nil, nil when the key is unknown.
	GetByKey(ctx context.Context, key string, userID, tenantID uuid.UUID) (*entity.IdempotencyKey, error)
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	DeleteExpired(ctx context.Context) (int64, error)
}

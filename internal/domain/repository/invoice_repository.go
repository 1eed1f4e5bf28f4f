package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/sangkips/invoicely-api/pkg/pagination"
)

// InvoiceRepository persists invoices and their items. Implementations scope
// every query to the tenant in the context.
type InvoiceRepository interface {
	// Create inserts the invoice row only; items are written with CreateItems.
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateItems(ctx context.Context, items []entity.InvoiceItem) error
	// GetByID loads the invoice with its client and items ordered by position.
	// It returns nil, nil when the invoice does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	// Save writes every column of the invoice row, never its associations.
	Save(ctx context.Context, invoice *entity.Invoice) error
	// ReplaceItems hard-deletes all item rows of the invoice and inserts items.
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error
	// Delete removes the invoice and its items.
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus, at time.Time) error
	List(ctx context.Context, params *InvoiceFilterParams) ([]entity.Invoice, int64, error)
	// ListForPeriod returns every invoice issued in [from, to) without pagination.
	ListForPeriod(ctx context.Context, from, to time.Time) ([]entity.Invoice, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	// Transaction runs fn against a repository bound to one database
	// transaction. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(repo InvoiceRepository) error) error
}

// InvoiceFilterParams contains filtering parameters for invoice queries
type InvoiceFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	Status     *enum.InvoiceStatus
	ClientID   *uuid.UUID
	// UserID restricts the list to invoices created by one user.
	UserID    *uuid.UUID
	SortBy    string
	SortOrder string
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var invoiceSortColumns = map[string]string{
	"issue_date":     "issue_date",
	"due_date":       "due_date",
	"total":          "total",
	"invoice_number": "invoice_number",
	"created_at":     "created_at",
	"status":         "status",
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *invoiceRepository) CreateItems(ctx context.Context, items []entity.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) Save(ctx context.Context, invoice *entity.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error {
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Delete(&entity.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	return r.CreateItems(ctx, items)
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Delete(&entity.InvoiceItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Delete(&entity.Invoice{}, "id = ?", id).Error
}

// UpdateStatus keeps the first sent_at and paid_at; moving back and forth
// never restamps them.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	switch status {
	case enum.InvoiceStatusSent:
		updates["sent_at"] = gorm.Expr("COALESCE(sent_at, ?)", at)
	case enum.InvoiceStatusPaid:
		updates["paid_at"] = gorm.Expr("COALESCE(paid_at, ?)", at)
	}
	res := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, params *domainRepo.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Invoice{}).Scopes(TenantScope(ctx))

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.ClientID != nil {
		query = query.Where("client_id = ?", *params.ClientID)
	}
	if params.Search != "" {
		pattern := likePattern(params.Search)
		query = query.Where(
			"LOWER(invoice_number) LIKE ? OR client_id IN (?)",
			pattern,
			r.db.Model(&entity.Client{}).Select("id").Where("LOWER(name) LIKE ?", pattern),
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy, ok := invoiceSortColumns[params.SortBy]
	if !ok {
		sortBy = "issue_date"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Client").
		Order(sortBy + " " + sortOrder).
		Order("created_at DESC").
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) ListForPeriod(ctx context.Context, from, to time.Time) ([]entity.Invoice, error) {
	var invoices []entity.Invoice
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Client").
		Where("issue_date >= ? AND issue_date < ?", from, to).
		Order("issue_date ASC").
		Order("invoice_number ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Where("client_id = ?", clientID).
		Count(&count).Error
	return count, err
}

func (r *invoiceRepository) Transaction(ctx context.Context, fn func(repo domainRepo.InvoiceRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&invoiceRepository{db: tx})
	})
}

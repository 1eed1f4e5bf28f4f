package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.Client{},
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.IdempotencyKey{},
	))
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type invoiceFixture struct {
	db       *gorm.DB
	invoices domainRepo.InvoiceRepository
	ctx      context.Context
	tenantID uuid.UUID
	client   *entity.Client
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	db := newTestDB(t)
	tenantID := uuid.New()
	ctx := WithTenant(context.Background(), tenantID)

	client := &entity.Client{TenantID: tenantID, UserID: uuid.New(), Name: "Globex"}
	require.NoError(t, NewClientRepository(db).Create(ctx, client))

	return &invoiceFixture{
		db:       db,
		invoices: NewInvoiceRepository(db),
		ctx:      ctx,
		tenantID: tenantID,
		client:   client,
	}
}

func (f *invoiceFixture) create(t *testing.T, number string, status enum.InvoiceStatus, issue time.Time, total float64) *entity.Invoice {
	t.Helper()
	invoice := &entity.Invoice{
		TenantID:      f.tenantID,
		UserID:        f.client.UserID,
		ClientID:      f.client.ID,
		InvoiceNumber: number,
		Status:        status,
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, 14),
		Currency:      "USD",
		Subtotal:      total,
		Total:         total,
	}
	require.NoError(t, f.invoices.Create(f.ctx, invoice))
	return invoice
}

func TestInvoiceRepositoryItemsKeepPosition(t *testing.T) {
	f := newInvoiceFixture(t)
	invoice := f.create(t, "INV-1", enum.InvoiceStatusDraft, date(2026, 3, 2), 30)

	items := []entity.InvoiceItem{
		{InvoiceID: invoice.ID, Position: 1, Description: "second", Quantity: 1, UnitPrice: 20, Currency: "USD", ExchangeRate: 1, Amount: 20},
		{InvoiceID: invoice.ID, Position: 0, Description: "first", Quantity: 1, UnitPrice: 10, Currency: "USD", ExchangeRate: 1, Amount: 10},
	}
	require.NoError(t, f.invoices.CreateItems(f.ctx, items))

	loaded, err := f.invoices.GetByID(f.ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "first", loaded.Items[0].Description)
	assert.Equal(t, "second", loaded.Items[1].Description)
	require.NotNil(t, loaded.Client)
	assert.Equal(t, "Globex", loaded.Client.Name)

	replacement := []entity.InvoiceItem{
		{Position: 0, Description: "only", Quantity: 2, UnitPrice: 5, Currency: "USD", ExchangeRate: 1, Amount: 10},
	}
	require.NoError(t, f.invoices.ReplaceItems(f.ctx, invoice.ID, replacement))

	loaded, err = f.invoices.GetByID(f.ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "only", loaded.Items[0].Description)

	var rows int64
	require.NoError(t, f.db.Model(&entity.InvoiceItem{}).Where("invoice_id = ?", invoice.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestInvoiceRepositoryItemInputsRoundTrip(t *testing.T) {
	f := newInvoiceFixture(t)
	invoice := f.create(t, "INV-1", enum.InvoiceStatusDraft, date(2026, 3, 2), 100)

	items := []entity.InvoiceItem{
		{InvoiceID: invoice.ID, Description: "Retainer", Quantity: 3, UnitPrice: 33.333, Currency: "USD", ExchangeRate: 1, Amount: 100},
		{InvoiceID: invoice.ID, Position: 1, Description: "Hours", Quantity: 1.125, UnitPrice: 80.000001, Currency: "EUR", ExchangeRate: 1.08765432, DiscountType: enum.DiscountTypeAmount, DiscountValue: 0.000005},
	}
	require.NoError(t, f.invoices.CreateItems(f.ctx, items))

	loaded, err := f.invoices.GetByID(f.ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	first := loaded.Items[0].LineItem()
	assert.True(t, first.UnitPrice.Equal(decimal.RequireFromString("33.333")), first.UnitPrice.String())
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(3)))

	second := loaded.Items[1].LineItem()
	assert.True(t, second.Quantity.Equal(decimal.RequireFromString("1.125")))
	assert.True(t, second.UnitPrice.Equal(decimal.RequireFromString("80.000001")), second.UnitPrice.String())
	assert.True(t, second.ExchangeRate.Equal(decimal.RequireFromString("1.08765432")))
	assert.True(t, second.DiscountValue.Equal(decimal.RequireFromString("0.000005")))

	// Recomputing from stored rows prices the same numbers that were written.
	totals := billing.Aggregate(loaded.LineItems()[:1], loaded.Terms())
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(100)), totals.Subtotal.String())
}

func TestInvoiceRepositoryTenantScope(t *testing.T) {
	f := newInvoiceFixture(t)
	invoice := f.create(t, "INV-1", enum.InvoiceStatusDraft, date(2026, 3, 2), 30)

	other := WithTenant(context.Background(), uuid.New())
	loaded, err := f.invoices.GetByID(other, invoice.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loaded, err = f.invoices.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	err = f.invoices.UpdateStatus(other, invoice.ID, enum.InvoiceStatusPaid, time.Now())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	loaded, err = f.invoices.GetByID(WithSkipTenantScope(context.Background(), true), invoice.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestInvoiceRepositoryUpdateStatusStampsTime(t *testing.T) {
	f := newInvoiceFixture(t)
	invoice := f.create(t, "INV-1", enum.InvoiceStatusDraft, date(2026, 3, 2), 30)
	at := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	require.NoError(t, f.invoices.UpdateStatus(f.ctx, invoice.ID, enum.InvoiceStatusPaid, at))

	loaded, err := f.invoices.GetByID(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusPaid, loaded.Status)
	require.NotNil(t, loaded.PaidAt)
	assert.True(t, at.Equal(*loaded.PaidAt))
	assert.Nil(t, loaded.SentAt)
}

func TestInvoiceRepositoryUpdateStatusKeepsFirstStamp(t *testing.T) {
	f := newInvoiceFixture(t)
	invoice := f.create(t, "INV-1", enum.InvoiceStatusDraft, date(2026, 3, 2), 30)
	firstPaid := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	sent := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	repaid := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	require.NoError(t, f.invoices.UpdateStatus(f.ctx, invoice.ID, enum.InvoiceStatusPaid, firstPaid))
	require.NoError(t, f.invoices.UpdateStatus(f.ctx, invoice.ID, enum.InvoiceStatusSent, sent))
	require.NoError(t, f.invoices.UpdateStatus(f.ctx, invoice.ID, enum.InvoiceStatusPaid, repaid))

	loaded, err := f.invoices.GetByID(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusPaid, loaded.Status)
	require.NotNil(t, loaded.PaidAt)
	assert.True(t, firstPaid.Equal(*loaded.PaidAt), "paid_at was restamped: %v", loaded.PaidAt)
	require.NotNil(t, loaded.SentAt)
	assert.True(t, sent.Equal(*loaded.SentAt))
}

func TestInvoiceRepositoryTransactionRollsBack(t *testing.T) {
	f := newInvoiceFixture(t)
	boom := errors.New("boom")

	var createdID uuid.UUID
	err := f.invoices.Transaction(f.ctx, func(repo domainRepo.InvoiceRepository) error {
		invoice := &entity.Invoice{
			TenantID:      f.tenantID,
			UserID:        f.client.UserID,
			ClientID:      f.client.ID,
			InvoiceNumber: "INV-TX",
			Status:        enum.InvoiceStatusDraft,
			IssueDate:     date(2026, 3, 2),
			DueDate:       date(2026, 3, 16),
			Currency:      "USD",
		}
		if err := repo.Create(f.ctx, invoice); err != nil {
			return err
		}
		createdID = invoice.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	loaded, err := f.invoices.GetByID(f.ctx, createdID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestInvoiceRepositoryListAndCount(t *testing.T) {
	f := newInvoiceFixture(t)
	f.create(t, "INV-001", enum.InvoiceStatusPaid, date(2026, 1, 10), 100)
	f.create(t, "INV-002", enum.InvoiceStatusSent, date(2026, 2, 10), 200)
	f.create(t, "INV-003", enum.InvoiceStatusPaid, date(2026, 3, 10), 300)

	paid := enum.InvoiceStatusPaid
	list, total, err := f.invoices.List(f.ctx, &domainRepo.InvoiceFilterParams{
		Pagination: &pagination.PaginationParams{Page: 1, PerPage: 10},
		Status:     &paid,
		SortBy:     "total",
		SortOrder:  "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-001", list[0].InvoiceNumber)

	list, total, err = f.invoices.List(f.ctx, &domainRepo.InvoiceFilterParams{
		Pagination: &pagination.PaginationParams{Page: 1, PerPage: 10},
		Search:     "globex",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "INV-003", list[0].InvoiceNumber)

	list, total, err = f.invoices.List(f.ctx, &domainRepo.InvoiceFilterParams{
		Pagination: &pagination.PaginationParams{Page: 2, PerPage: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 1)

	count, err := f.invoices.CountByClient(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	period, err := f.invoices.ListForPeriod(f.ctx, date(2026, 2, 1), date(2026, 4, 1))
	require.NoError(t, err)
	require.Len(t, period, 2)
	assert.Equal(t, "INV-002", period[0].InvoiceNumber)
}

func TestAnalyticsRepository(t *testing.T) {
	f := newInvoiceFixture(t)
	f.create(t, "INV-001", enum.InvoiceStatusPaid, date(2026, 1, 10), 100)
	f.create(t, "INV-002", enum.InvoiceStatusSent, date(2026, 2, 10), 200)
	f.create(t, "INV-003", enum.InvoiceStatusPaid, date(2026, 3, 10), 300)
	f.create(t, "INV-004", enum.InvoiceStatusPaid, date(2026, 3, 20), 50)
	euro := f.create(t, "INV-005", enum.InvoiceStatusPaid, date(2026, 3, 21), 0)
	require.NoError(t, f.db.Model(euro).Updates(map[string]any{"currency": "EUR", "total": 999}).Error)

	analytics := NewAnalyticsRepository(f.db)

	totals, err := analytics.TotalsByStatus(f.ctx)
	require.NoError(t, err)
	byStatus := map[string]domainRepo.StatusTotal{}
	for _, row := range totals {
		byStatus[row.Currency+"/"+row.Status.String()] = row
	}
	assert.Len(t, totals, 3)
	assert.Equal(t, int64(3), byStatus["USD/paid"].Count)
	assert.Equal(t, 450.0, byStatus["USD/paid"].Total)
	assert.Equal(t, 200.0, byStatus["USD/sent"].Total)
	assert.Equal(t, 999.0, byStatus["EUR/paid"].Total)

	revenue, err := analytics.RevenueBetween(f.ctx, "USD", date(2026, 3, 1), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 350.0, revenue)

	revenue, err = analytics.RevenueBetween(f.ctx, "EUR", date(2026, 3, 1), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 999.0, revenue)

	months, err := analytics.MonthlyRevenue(f.ctx, "USD", 3, date(2026, 3, 25))
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, 100.0, months[0].Revenue)
	assert.Equal(t, 0.0, months[1].Revenue)
	assert.Equal(t, 350.0, months[2].Revenue)
	assert.Equal(t, int64(2), months[2].Count)

	none, err := analytics.TotalsByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIdempotencyRepositoryUpsertAndExpiry(t *testing.T) {
	db := newTestDB(t)
	repo := NewIdempotencyRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	tenantID := uuid.New()

	missing, err := repo.GetByKey(ctx, "k1", userID, tenantID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k1", UserID: userID, TenantID: tenantID, Endpoint: "POST /invoices", RequestHash: "a",
		ResponseCode: 201, ResponseBody: `{"n":1}`, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k1", UserID: userID, TenantID: tenantID, Endpoint: "POST /invoices", RequestHash: "b",
		ResponseCode: 201, ResponseBody: `{"n":2}`, ExpiresAt: time.Now().Add(time.Hour),
	}))

	stored, err := repo.GetByKey(ctx, "k1", userID, tenantID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "b", stored.RequestHash)
	assert.False(t, stored.IsExpired())

	otherTenant := uuid.New()
	unseen, err := repo.GetByKey(ctx, "k1", userID, otherTenant)
	require.NoError(t, err)
	assert.Nil(t, unseen)

	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k1", UserID: userID, TenantID: otherTenant, Endpoint: "POST /invoices", RequestHash: "c",
		ResponseCode: 201, ResponseBody: `{"n":3}`, ExpiresAt: time.Now().Add(time.Hour),
	}))
	stored, err = repo.GetByKey(ctx, "k1", userID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "b", stored.RequestHash)

	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k2", UserID: userID, TenantID: tenantID, Endpoint: "POST /invoices",
		ResponseCode: 201, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

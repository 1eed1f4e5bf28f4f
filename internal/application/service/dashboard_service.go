package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/internal/infrastructure/cache"
	infraRepo "github.com/sangkips/invoicely-api/internal/infrastructure/repository"
	"github.com/sangkips/invoicely-api/internal/observability/logger"
	"github.com/sangkips/invoicely-api/internal/observability/metrics"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/sangkips/invoicely-api/pkg/pagination"
	"go.uber.org/zap"
)

const (
	recentInvoiceCount = 5
	revenueChartMonths = 6
)

// DashboardService provides dashboard statistics
type DashboardService struct {
	analyticsRepo repository.AnalyticsRepository
	invoiceRepo   repository.InvoiceRepository
	tenantRepo    repository.TenantRepository
	cache         *cache.DashboardCache
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewDashboardService creates a new dashboard service. dashboardCache and m may be nil.
func NewDashboardService(
	analyticsRepo repository.AnalyticsRepository,
	invoiceRepo repository.InvoiceRepository,
	tenantRepo repository.TenantRepository,
	dashboardCache *cache.DashboardCache,
	m *metrics.Metrics,
) *DashboardService {
	return &DashboardService{
		analyticsRepo: analyticsRepo,
		invoiceRepo:   invoiceRepo,
		tenantRepo:    tenantRepo,
		cache:         dashboardCache,
		metrics:       m,
		now:           time.Now,
	}
}

// DashboardStats represents dashboard statistics. Amounts are in Currency,
// the tenant's default; ByCurrency breaks them down per settlement currency.
// Counts and the payment rate cover every currency.
type DashboardStats struct {
	Currency         string           `json:"currency"`
	TotalInvoices    int64            `json:"total_invoices"`
	TotalRevenue     float64          `json:"total_revenue"`
	PendingAmount    float64          `json:"pending_amount"`
	OverdueAmount    float64          `json:"overdue_amount"`
	StatusCounts     map[string]int64 `json:"status_counts"`
	MonthlyRevenue   float64          `json:"monthly_revenue"`
	LastMonthRevenue float64          `json:"last_month_revenue"`
	RevenueGrowth    float64          `json:"revenue_growth"`
	AverageInvoice   float64          `json:"average_invoice_value"`
	PaymentRate      float64          `json:"payment_rate"`
	ByCurrency       []CurrencyTotals `json:"by_currency"`
	RevenueChart     []RevenuePoint   `json:"revenue_chart"`
	RecentInvoices   []RecentInvoice  `json:"recent_invoices"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// CurrencyTotals are the status amounts of one settlement currency.
type CurrencyTotals struct {
	Currency string  `json:"currency"`
	Invoices int64   `json:"invoices"`
	Revenue  float64 `json:"revenue"`
	Pending  float64 `json:"pending"`
	Overdue  float64 `json:"overdue"`
}

// RevenuePoint is the paid revenue of one month.
type RevenuePoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Count   int64   `json:"count"`
}

// RecentInvoice is a compact row of the latest invoices table.
type RecentInvoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	ClientName    string  `json:"client_name,omitempty"`
	Status        string  `json:"status"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
	IssueDate     string  `json:"issue_date"`
}

// GetDashboardStats returns the statistics of the current tenant, served from
// the cache when a fresh snapshot exists.
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	var cached DashboardStats
	hit, err := s.cache.Get(ctx, tenantID, &cached)
	switch {
	case err != nil:
		s.metrics.DashboardCache("error")
		logger.FromContext(ctx).Warn("dashboard cache read failed", zap.Error(err))
	case hit:
		s.metrics.DashboardCache("hit")
		return &cached, nil
	default:
		s.metrics.DashboardCache("miss")
	}

	stats, err := s.compute(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, tenantID, stats); err != nil {
		logger.FromContext(ctx).Warn("dashboard cache write failed", zap.Error(err))
	}
	return stats, nil
}

// reportingCurrency is the tenant's default currency.
func (s *DashboardService) reportingCurrency(ctx context.Context, tenantID uuid.UUID) string {
	currency := entity.DefaultTenantSettings().Currency
	if s.tenantRepo == nil {
		return currency
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to load tenant currency", zap.Error(err))
		return currency
	}
	if tenant != nil && tenant.Settings.Currency != "" {
		currency = strings.ToUpper(tenant.Settings.Currency)
	}
	return currency
}

func (s *DashboardService) compute(ctx context.Context, tenantID uuid.UUID) (*DashboardStats, error) {
	now := s.now()
	stats := &DashboardStats{
		Currency:     s.reportingCurrency(ctx, tenantID),
		StatusCounts: make(map[string]int64, len(enum.InvoiceStatuses)),
		GeneratedAt:  now,
	}
	for _, status := range enum.InvoiceStatuses {
		stats.StatusCounts[status.String()] = 0
	}

	totals, err := s.analyticsRepo.TotalsByStatus(ctx)
	if err != nil {
		return nil, apperror.NewPersistenceError("load status totals", err)
	}
	byCurrency := map[string]*CurrencyTotals{}
	var paidCount, paidInCurrency, billable int64
	for _, t := range totals {
		currency := strings.ToUpper(t.Currency)
		ct, ok := byCurrency[currency]
		if !ok {
			ct = &CurrencyTotals{Currency: currency}
			byCurrency[currency] = ct
		}
		ct.Invoices += t.Count
		stats.StatusCounts[t.Status.String()] += t.Count
		stats.TotalInvoices += t.Count
		switch t.Status {
		case enum.InvoiceStatusPaid:
			ct.Revenue += t.Total
			paidCount += t.Count
			if currency == stats.Currency {
				paidInCurrency += t.Count
			}
		case enum.InvoiceStatusSent:
			ct.Pending += t.Total
		case enum.InvoiceStatusOverdue:
			ct.Overdue += t.Total
		}
		if t.Status != enum.InvoiceStatusDraft && t.Status != enum.InvoiceStatusCancelled {
			billable += t.Count
		}
	}
	stats.ByCurrency = make([]CurrencyTotals, 0, len(byCurrency))
	for _, ct := range byCurrency {
		ct.Revenue = round2(ct.Revenue)
		ct.Pending = round2(ct.Pending)
		ct.Overdue = round2(ct.Overdue)
		stats.ByCurrency = append(stats.ByCurrency, *ct)
	}
	sort.Slice(stats.ByCurrency, func(i, j int) bool {
		return stats.ByCurrency[i].Currency < stats.ByCurrency[j].Currency
	})
	if ct, ok := byCurrency[stats.Currency]; ok {
		stats.TotalRevenue = ct.Revenue
		stats.PendingAmount = ct.Pending
		stats.OverdueAmount = ct.Overdue
	}
	if paidInCurrency > 0 {
		stats.AverageInvoice = round2(stats.TotalRevenue / float64(paidInCurrency))
	}
	if billable > 0 {
		stats.PaymentRate = round2(float64(paidCount) / float64(billable) * 100)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	if stats.MonthlyRevenue, err = s.analyticsRepo.RevenueBetween(ctx, stats.Currency, monthStart, monthStart.AddDate(0, 1, 0)); err != nil {
		return nil, apperror.NewPersistenceError("load monthly revenue", err)
	}
	if stats.LastMonthRevenue, err = s.analyticsRepo.RevenueBetween(ctx, stats.Currency, lastMonthStart, monthStart); err != nil {
		return nil, apperror.NewPersistenceError("load monthly revenue", err)
	}
	stats.MonthlyRevenue = round2(stats.MonthlyRevenue)
	stats.LastMonthRevenue = round2(stats.LastMonthRevenue)
	stats.RevenueGrowth = growth(stats.MonthlyRevenue, stats.LastMonthRevenue)

	months, err := s.analyticsRepo.MonthlyRevenue(ctx, stats.Currency, revenueChartMonths, now)
	if err != nil {
		return nil, apperror.NewPersistenceError("load revenue chart", err)
	}
	stats.RevenueChart = make([]RevenuePoint, 0, len(months))
	for _, m := range months {
		stats.RevenueChart = append(stats.RevenueChart, RevenuePoint{
			Month:   m.Month.Format("2006-01"),
			Revenue: round2(m.Revenue),
			Count:   m.Count,
		})
	}

	recent, _, err := s.invoiceRepo.List(ctx, &repository.InvoiceFilterParams{
		Pagination: &pagination.PaginationParams{Page: 1, PerPage: recentInvoiceCount},
		SortBy:     "created_at",
		SortOrder:  "desc",
	})
	if err != nil {
		return nil, apperror.NewPersistenceError("load recent invoices", err)
	}
	if len(recent) > recentInvoiceCount {
		recent = recent[:recentInvoiceCount]
	}
	stats.RecentInvoices = make([]RecentInvoice, 0, len(recent))
	for _, invoice := range recent {
		stats.RecentInvoices = append(stats.RecentInvoices, recentInvoice(invoice))
	}

	return stats, nil
}

func recentInvoice(invoice entity.Invoice) RecentInvoice {
	row := RecentInvoice{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status.String(),
		Total:         invoice.Total,
		Currency:      invoice.Currency,
		IssueDate:     invoice.IssueDate.Format("2006-01-02"),
	}
	if invoice.Client != nil {
		row.ClientName = invoice.Client.Name
	}
	return row
}

// growth is the percentage change from previous to current. A rise from zero
// reports 100.
func growth(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round2((current - previous) / previous * 100)
}

func round2(v float64) float64 {
	return billing.ToFloat(billing.Round2(billing.Money(v)))
}

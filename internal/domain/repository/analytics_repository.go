package repository

import (
	"context"
	"time"

	"github.com/sangkips/invoicely-api/internal/domain/enum"
)

// StatusTotal is the invoice count and summed total for one status in one
// settlement currency.
type StatusTotal struct {
	Status   enum.InvoiceStatus
	Currency string
	Count    int64
	Total    float64
}

// MonthlyRevenue is the paid revenue for one calendar month.
type MonthlyRevenue struct {
	Month   time.Time
	Revenue float64
	Count   int64
}

// AnalyticsRepository runs the aggregate queries behind the dashboard.
// Amounts are never summed across currencies.
type AnalyticsRepository interface {
	// TotalsByStatus groups every invoice of the tenant by status and currency.
	TotalsByStatus(ctx context.Context) ([]StatusTotal, error)
	// RevenueBetween sums totals of paid invoices in currency issued in [from, to).
	RevenueBetween(ctx context.Context, currency string, from, to time.Time) (float64, error)
	// MonthlyRevenue returns paid revenue in currency for the last n months, oldest first.
	MonthlyRevenue(ctx context.Context, currency string, months int, now time.Time) ([]MonthlyRevenue, error)
}

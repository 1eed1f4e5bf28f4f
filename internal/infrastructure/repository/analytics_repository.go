package repository

import (
	"context"
	"time"

	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	domainRepo "github.com/sangkips/invoicely-api/internal/domain/repository"
	"gorm.io/gorm"
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) TotalsByStatus(ctx context.Context) ([]domainRepo.StatusTotal, error) {
	var results []domainRepo.StatusTotal
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Select("status, currency, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Group("status, currency").
		Order("currency, status").
		Scan(&results).Error
	return results, err
}

func (r *analyticsRepository) RevenueBetween(ctx context.Context, currency string, from, to time.Time) (float64, error) {
	var revenue float64
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Select("COALESCE(SUM(total), 0)").
		Where("status = ? AND currency = ? AND issue_date >= ? AND issue_date < ?", enum.InvoiceStatusPaid, currency, from, to).
		Scan(&revenue).Error
	return revenue, err
}

// MonthlyRevenue buckets in Go so the query stays portable across drivers.
func (r *analyticsRepository) MonthlyRevenue(ctx context.Context, currency string, months int, now time.Time) ([]domainRepo.MonthlyRevenue, error) {
	if months < 1 {
		months = 1
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := current.AddDate(0, -(months - 1), 0)

	var rows []struct {
		IssueDate time.Time
		Total     float64
	}
	err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Select("issue_date, total").
		Where("status = ? AND currency = ? AND issue_date >= ?", enum.InvoiceStatusPaid, currency, start).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domainRepo.MonthlyRevenue, months)
	for i := range result {
		result[i].Month = start.AddDate(0, i, 0)
	}
	for _, row := range rows {
		idx := (row.IssueDate.Year()-start.Year())*12 + int(row.IssueDate.Month()) - int(start.Month())
		if idx < 0 || idx >= months {
			continue
		}
		result[idx].Revenue += row.Total
		result[idx].Count++
	}
	return result, nil
}

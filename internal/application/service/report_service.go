package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/repository"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet   = "Invoices"
	maxReportDays = 366
)

var reportHeader = []interface{}{
	"Invoice Number", "Client", "Status", "Issue Date", "Due Date",
	"Currency", "Subtotal", "Discount", "Tax", "Total",
}

// ReportService renders invoice reports as spreadsheets.
type ReportService struct {
	invoiceRepo repository.InvoiceRepository
}

// NewReportService creates a new report service
func NewReportService(invoiceRepo repository.InvoiceRepository) *ReportService {
	return &ReportService{invoiceRepo: invoiceRepo}
}

// InvoiceReport is a rendered workbook.
type InvoiceReport struct {
	Filename string
	Content  []byte
	Rows     int
}

type reportTotals struct {
	subtotal, discount, tax, total decimal.Decimal
}

// ExportInvoices builds an XLSX workbook of the invoices issued in [from, to).
// Amounts are summed per currency into one totals row each.
func (s *ReportService) ExportInvoices(ctx context.Context, from, to time.Time) (*InvoiceReport, error) {
	if !to.After(from) {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "to", Message: "must be after from"},
		})
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "to", Message: fmt.Sprintf("range must not exceed %d days", maxReportDays)},
		})
	}

	invoices, err := s.invoiceRepo.ListForPeriod(ctx, from, to)
	if err != nil {
		return nil, apperror.NewPersistenceError("load invoices for report", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", "J1", bold); err != nil {
		return nil, err
	}

	totals := make(map[string]*reportTotals)
	row := 2
	for i := range invoices {
		if err := writeInvoiceRow(f, row, &invoices[i]); err != nil {
			return nil, err
		}
		t, ok := totals[invoices[i].Currency]
		if !ok {
			t = &reportTotals{}
			totals[invoices[i].Currency] = t
		}
		t.subtotal = t.subtotal.Add(billing.Money(invoices[i].Subtotal))
		t.discount = t.discount.Add(billing.Money(invoices[i].DiscountAmount))
		t.tax = t.tax.Add(billing.Money(invoices[i].TaxAmount))
		t.total = t.total.Add(billing.Money(invoices[i].Total))
		row++
	}

	currencies := make([]string, 0, len(totals))
	for currency := range totals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	firstTotal := row
	for _, currency := range currencies {
		t := totals[currency]
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			"TOTAL", "", "", "", "", currency,
			billing.ToFloat(billing.Round2(t.subtotal)),
			billing.ToFloat(billing.Round2(t.discount)),
			billing.ToFloat(billing.Round2(t.tax)),
			billing.ToFloat(billing.Round2(t.total)),
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return nil, err
		}
		row++
	}
	if row > firstTotal {
		if err := f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", firstTotal), fmt.Sprintf("J%d", row-1), bold); err != nil {
			return nil, err
		}
	}
	if row > 2 {
		if err := f.SetCellStyle(reportSheet, "G2", fmt.Sprintf("J%d", row-1), money); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(reportSheet, "A", "J", 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return &InvoiceReport{
		Filename: fmt.Sprintf("invoices_%s_%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102")),
		Content:  buf.Bytes(),
		Rows:     len(invoices),
	}, nil
}

func writeInvoiceRow(f *excelize.File, row int, invoice *entity.Invoice) error {
	clientName := ""
	if invoice.Client != nil {
		clientName = invoice.Client.Name
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := []interface{}{
		invoice.InvoiceNumber,
		clientName,
		invoice.Status.String(),
		invoice.IssueDate.Format("2006-01-02"),
		invoice.DueDate.Format("2006-01-02"),
		invoice.Currency,
		invoice.Subtotal,
		invoice.DiscountAmount,
		invoice.TaxAmount,
		invoice.Total,
	}
	return f.SetSheetRow(reportSheet, cell, &values)
}

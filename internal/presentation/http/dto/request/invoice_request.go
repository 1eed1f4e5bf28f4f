package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceItemRequest is one line of an invoice payload. Amounts may be sent
// as JSON numbers or strings.
type InvoiceItemRequest struct {
	Description   string           `json:"description"`
	Quantity      *decimal.Decimal `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Currency      string           `json:"currency"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
}

// CreateInvoiceRequest is the body of create and preview requests. Field
// presence is checked by the invoice service so that missing fields are
// reported together.
type CreateInvoiceRequest struct {
	ClientID                       *uuid.UUID           `json:"client_id"`
	InvoiceNumber                  string               `json:"invoice_number"`
	Status                         string               `json:"status"`
	IssueDate                      *string              `json:"issue_date"`
	DueDate                        *string              `json:"due_date"`
	Currency                       string               `json:"currency"`
	TaxRate                        *decimal.Decimal     `json:"tax_rate"`
	DiscountType                   string               `json:"discount_type"`
	DiscountValue                  *decimal.Decimal     `json:"discount_value"`
	ApplyDiscountToDiscountedItems *bool                `json:"apply_discount_to_discounted_items"`
	Notes                          *string              `json:"notes"`
	Items                          []InvoiceItemRequest `json:"items"`
}

// UpdateInvoiceRequest is a partial update. A present items array replaces
// every stored line.
type UpdateInvoiceRequest struct {
	ClientID                       *uuid.UUID            `json:"client_id"`
	InvoiceNumber                  *string               `json:"invoice_number"`
	Status                         *string               `json:"status"`
	IssueDate                      *string               `json:"issue_date"`
	DueDate                        *string               `json:"due_date"`
	Currency                       *string               `json:"currency"`
	TaxRate                        *decimal.Decimal      `json:"tax_rate"`
	DiscountType                   *string               `json:"discount_type"`
	DiscountValue                  *decimal.Decimal      `json:"discount_value"`
	ApplyDiscountToDiscountedItems *bool                 `json:"apply_discount_to_discounted_items"`
	Notes                          *string               `json:"notes"`
	Items                          *[]InvoiceItemRequest `json:"items"`
}

// UpdateInvoiceStatusRequest changes only the status label
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// InvoiceFilterRequest represents invoice list parameters
type InvoiceFilterRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	ClientID  string `form:"client_id"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

// ReportRequest selects the issue-date range of a report. Dates are
// inclusive and formatted YYYY-MM-DD.
type ReportRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

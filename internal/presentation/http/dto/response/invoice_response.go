package response

import (
	"time"

	"github.com/sangkips/invoicely-api/internal/application/service"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
)

// ItemPreview is the valuation of one line, in the invoice currency unless noted.
type ItemPreview struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountAmount  float64 `json:"discount_amount"`
	NetAmount       float64 `json:"net_amount"`
	ConvertedAmount float64 `json:"converted_amount"`
}

// InvoicePreviewResponse is returned by the preview endpoint
type InvoicePreviewResponse struct {
	Currency               string        `json:"currency"`
	Subtotal               float64       `json:"subtotal"`
	DiscountAmount         float64       `json:"discount_amount"`
	TaxableAmount          float64       `json:"taxable_amount"`
	TaxAmount              float64       `json:"tax_amount"`
	Total                  float64       `json:"total"`
	Items                  []ItemPreview `json:"items"`
	SuggestedDueDate       *string       `json:"suggested_due_date,omitempty"`
	SuggestedInvoiceNumber string        `json:"suggested_invoice_number,omitempty"`
}

// NewInvoicePreviewResponse converts a priced preview to its JSON form
func NewInvoicePreviewResponse(p *service.InvoicePreview) *InvoicePreviewResponse {
	f := p.Financials
	out := &InvoicePreviewResponse{
		Currency:               p.Currency,
		Subtotal:               billing.ToFloat(f.Subtotal),
		DiscountAmount:         billing.ToFloat(f.DiscountAmount),
		TaxableAmount:          billing.ToFloat(f.TaxableAmount),
		TaxAmount:              billing.ToFloat(f.TaxAmount),
		Total:                  billing.ToFloat(f.Total),
		Items:                  make([]ItemPreview, 0, len(f.Items)),
		SuggestedInvoiceNumber: p.SuggestedInvoiceNumber,
	}
	for _, v := range f.Items {
		out.Items = append(out.Items, ItemPreview{
			Subtotal:        billing.ToFloat(v.Subtotal),
			DiscountAmount:  billing.ToFloat(v.DiscountAmount),
			NetAmount:       billing.ToFloat(v.NetAmount),
			ConvertedAmount: billing.ToFloat(v.ConvertedAmount),
		})
	}
	if p.SuggestedDueDate != nil {
		due := p.SuggestedDueDate.Format(time.DateOnly)
		out.SuggestedDueDate = &due
	}
	return out
}

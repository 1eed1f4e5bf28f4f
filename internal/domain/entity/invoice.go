package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"gorm.io/gorm"
)

// Invoice is a bill issued to a client. Subtotal, DiscountAmount, TaxAmount
// and Total are a snapshot computed by billing.Aggregate and are always
// written together.
type Invoice struct {
	ID                             uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TenantID                       uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID                         uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	ClientID                       uuid.UUID          `gorm:"type:uuid;not null;index" json:"client_id"`
	InvoiceNumber                  string             `gorm:"size:100;not null;index" json:"invoice_number"`
	Status                         enum.InvoiceStatus `gorm:"size:20;not null;index" json:"status"`
	IssueDate                      time.Time          `gorm:"type:date;not null;index" json:"issue_date"`
	DueDate                        time.Time          `gorm:"type:date;not null" json:"due_date"`
	Currency                       string             `gorm:"size:3;not null" json:"currency"`
	TaxRate                        float64            `gorm:"type:decimal(10,6);not null" json:"tax_rate"`
	DiscountType                   enum.DiscountType  `gorm:"size:20" json:"discount_type"`
	DiscountValue                  float64            `gorm:"type:decimal(19,6);not null" json:"discount_value"`
	ApplyDiscountToDiscountedItems bool               `gorm:"not null" json:"apply_discount_to_discounted_items"`
	Subtotal                       float64            `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	DiscountAmount                 float64            `gorm:"type:decimal(15,2);not null" json:"discount_amount"`
	TaxAmount                      float64            `gorm:"type:decimal(15,2);not null" json:"tax_amount"`
	Total                          float64            `gorm:"type:decimal(15,2);not null" json:"total"`
	Notes                          *string            `gorm:"type:text" json:"notes,omitempty"`
	SentAt                         *time.Time         `json:"sent_at,omitempty"`
	PaidAt                         *time.Time         `json:"paid_at,omitempty"`
	CreatedAt                      time.Time          `json:"created_at"`
	UpdatedAt                      time.Time          `json:"updated_at"`

	Client *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items  []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Invoice) TableName() string {
	return "invoices"
}

// Terms returns the invoice-level inputs for billing.Aggregate.
func (i *Invoice) Terms() billing.Terms {
	return billing.Terms{
		Currency:               i.Currency,
		TaxRate:                billing.Money(i.TaxRate),
		DiscountType:           i.DiscountType,
		DiscountValue:          billing.Money(i.DiscountValue),
		ApplyToDiscountedItems: i.ApplyDiscountToDiscountedItems,
	}
}

// ApplyFinancials overwrites the whole monetary snapshot.
func (i *Invoice) ApplyFinancials(f billing.Financials) {
	i.Subtotal = billing.ToFloat(f.Subtotal)
	i.DiscountAmount = billing.ToFloat(f.DiscountAmount)
	i.TaxAmount = billing.ToFloat(f.TaxAmount)
	i.Total = billing.ToFloat(f.Total)
}

// LineItems converts the persisted rows back into engine input.
func (i *Invoice) LineItems() []billing.LineItem {
	items := make([]billing.LineItem, 0, len(i.Items))
	for _, item := range i.Items {
		items = append(items, item.LineItem())
	}
	return items
}

// InvoiceItem is one line of an invoice. Amount is quantity × unit price,
// before any item discount.
type InvoiceItem struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position      int               `gorm:"not null;default:0" json:"position"`
	Description   string            `gorm:"type:text;not null" json:"description"`
	Quantity      float64           `gorm:"type:decimal(19,6);not null" json:"quantity"`
	UnitPrice     float64           `gorm:"type:decimal(19,6);not null" json:"unit_price"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	ExchangeRate  float64           `gorm:"type:decimal(18,8);not null" json:"exchange_rate"`
	DiscountType  enum.DiscountType `gorm:"size:20" json:"discount_type"`
	DiscountValue float64           `gorm:"type:decimal(19,6);not null" json:"discount_value"`
	Amount        float64           `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// LineItem converts the row into engine input.
func (i InvoiceItem) LineItem() billing.LineItem {
	return billing.LineItem{
		Description:   i.Description,
		Quantity:      billing.Money(i.Quantity),
		UnitPrice:     billing.Money(i.UnitPrice),
		Currency:      i.Currency,
		ExchangeRate:  billing.Money(i.ExchangeRate),
		DiscountType:  i.DiscountType,
		DiscountValue: billing.Money(i.DiscountValue),
	}
}

package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sangkips/invoicely-api/internal/domain/billing"
	"github.com/sangkips/invoicely-api/internal/domain/entity"
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

var (
	fieldValidator = validator.New()
	one            = decimal.NewFromInt(1)
	hundred        = decimal.NewFromInt(100)
)

const (
	maxDescriptionLength = 1000
	maxNotesLength       = 5000

	// Decimal places the invoice tables keep for inputs. Anything finer would
	// be rounded on write and a later recompute would price different numbers.
	inputPlaces        = 6
	exchangeRatePlaces = 8
)

// InvoiceItemInput is one line as submitted by the client. Nil pointers mean
// the field was omitted.
type InvoiceItemInput struct {
	Description   string
	Quantity      *decimal.Decimal
	UnitPrice     *decimal.Decimal
	Currency      string
	ExchangeRate  *decimal.Decimal
	DiscountType  string
	DiscountValue *decimal.Decimal
}

// CreateInvoiceInput is the full payload for a new invoice.
type CreateInvoiceInput struct {
	UserID                         uuid.UUID
	ClientID                       *uuid.UUID
	InvoiceNumber                  string
	Status                         string
	IssueDate                      *time.Time
	DueDate                        *time.Time
	Currency                       string
	TaxRate                        *decimal.Decimal
	DiscountType                   string
	DiscountValue                  *decimal.Decimal
	ApplyDiscountToDiscountedItems *bool
	Notes                          *string
	Items                          []InvoiceItemInput
}

// invoiceDefaults fill in terms the request left out.
type invoiceDefaults struct {
	Currency               string
	TaxRate                decimal.Decimal
	ApplyToDiscountedItems bool
}

// validInvoice is a request that passed the gate, with every default resolved.
type validInvoice struct {
	ClientID      uuid.UUID
	InvoiceNumber string
	Status        enum.InvoiceStatus
	IssueDate     time.Time
	DueDate       time.Time
	Terms         billing.Terms
	Notes         *string
	Items         []billing.LineItem
}

// gateMode selects which header fields are mandatory.
type gateMode int

const (
	gateCreate gateMode = iota
	// gatePreview only needs priced items; header fields are optional.
	gatePreview
)

type gate struct {
	missing []string
	invalid []apperror.FieldError
}

func (g *gate) require(field string, present bool) {
	if !present {
		g.missing = append(g.missing, field)
	}
}

func (g *gate) reject(field, message string, errType apperror.Type) {
	g.invalid = append(g.invalid, apperror.FieldError{Field: field, Message: message, Type: errType})
}

func (g *gate) err() error {
	if len(g.missing) > 0 {
		return apperror.NewMissingFieldsError(g.missing)
	}
	if len(g.invalid) > 0 {
		return apperror.NewValidationError(g.invalid)
	}
	return nil
}

// validateInvoice rejects malformed financial input before any computation
// or write. Missing fields are reported before invalid values.
func validateInvoice(in *CreateInvoiceInput, defaults invoiceDefaults, mode gateMode) (*validInvoice, error) {
	g := &gate{}
	out := &validInvoice{Notes: in.Notes}

	if mode == gateCreate {
		g.require("client_id", in.ClientID != nil && *in.ClientID != uuid.Nil)
		g.require("invoice_number", strings.TrimSpace(in.InvoiceNumber) != "")
		g.require("status", strings.TrimSpace(in.Status) != "")
		g.require("issue_date", in.IssueDate != nil && !in.IssueDate.IsZero())
		g.require("due_date", in.DueDate != nil && !in.DueDate.IsZero())
	}
	g.require("items", len(in.Items) > 0)
	for i, item := range in.Items {
		g.require(itemField(i, "description"), strings.TrimSpace(item.Description) != "")
		g.require(itemField(i, "unit_price"), item.UnitPrice != nil)
	}

	if in.ClientID != nil {
		out.ClientID = *in.ClientID
	}
	out.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	if in.IssueDate != nil {
		out.IssueDate = truncateDate(*in.IssueDate)
	}
	if in.DueDate != nil {
		out.DueDate = truncateDate(*in.DueDate)
	}

	out.Status = enum.InvoiceStatusDraft
	if strings.TrimSpace(in.Status) != "" {
		status, err := enum.ParseInvoiceStatus(in.Status)
		if err != nil {
			g.reject("status", "must be one of draft, sent, paid, overdue, cancelled", apperror.TypeValidation)
		}
		out.Status = status
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaults.Currency
	}
	if !validCurrency(currency) {
		g.reject("currency", "must be a 3-letter currency code", apperror.TypeValidation)
	}

	taxRate := defaults.TaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
		switch {
		case taxRate.IsNegative():
			g.reject("tax_rate", "must not be negative", apperror.TypeValidation)
		case tooPrecise(taxRate, inputPlaces):
			g.reject("tax_rate", placesMessage(inputPlaces), apperror.TypeValidation)
		}
	}

	discountType, discountValue := checkDiscount(g, "", in.DiscountType, in.DiscountValue)

	apply := defaults.ApplyToDiscountedItems
	if in.ApplyDiscountToDiscountedItems != nil {
		apply = *in.ApplyDiscountToDiscountedItems
	}

	if in.Notes != nil && len(*in.Notes) > maxNotesLength {
		g.reject("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength), apperror.TypeValidation)
	}

	if in.IssueDate != nil && in.DueDate != nil && out.DueDate.Before(out.IssueDate) {
		g.reject("due_date", "must not be before issue_date", apperror.TypeValidation)
	}

	out.Terms = billing.Terms{
		Currency:               currency,
		TaxRate:                taxRate,
		DiscountType:           discountType,
		DiscountValue:          discountValue,
		ApplyToDiscountedItems: apply,
	}

	out.Items = make([]billing.LineItem, 0, len(in.Items))
	for i, item := range in.Items {
		out.Items = append(out.Items, checkItem(g, i, item, currency))
	}

	if err := g.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkItem(g *gate, i int, item InvoiceItemInput, invoiceCurrency string) billing.LineItem {
	line := billing.LineItem{
		Description: strings.TrimSpace(item.Description),
		Quantity:    one,
		UnitPrice:   decimal.Zero,
		Currency:    invoiceCurrency,
	}

	if len(line.Description) > maxDescriptionLength {
		g.reject(itemField(i, "description"), fmt.Sprintf("must be at most %d characters", maxDescriptionLength), apperror.TypeValidation)
	}

	if item.Quantity != nil {
		switch {
		case item.Quantity.IsNegative():
			g.reject(itemField(i, "quantity"), "must not be negative", apperror.TypeInvalidQuantity)
		case tooPrecise(*item.Quantity, inputPlaces):
			g.reject(itemField(i, "quantity"), placesMessage(inputPlaces), apperror.TypeInvalidQuantity)
		case item.Quantity.IsPositive():
			line.Quantity = *item.Quantity
		}
	}

	if item.UnitPrice != nil {
		switch {
		case !item.UnitPrice.IsPositive():
			g.reject(itemField(i, "unit_price"), "must be greater than zero", apperror.TypeInvalidItemPrice)
		case tooPrecise(*item.UnitPrice, inputPlaces):
			g.reject(itemField(i, "unit_price"), placesMessage(inputPlaces), apperror.TypeInvalidItemPrice)
		}
		line.UnitPrice = *item.UnitPrice
	}

	if c := strings.ToUpper(strings.TrimSpace(item.Currency)); c != "" {
		if !validCurrency(c) {
			g.reject(itemField(i, "currency"), "must be a 3-letter currency code", apperror.TypeValidation)
		}
		line.Currency = c
	}

	line.ExchangeRate = one
	if !billing.SameCurrency(line.Currency, invoiceCurrency) {
		switch {
		case item.ExchangeRate == nil || !item.ExchangeRate.IsPositive():
			g.reject(itemField(i, "exchange_rate"), "must be greater than zero when the item currency differs from the invoice currency", apperror.TypeInvalidExchangeRate)
		case tooPrecise(*item.ExchangeRate, exchangeRatePlaces):
			g.reject(itemField(i, "exchange_rate"), placesMessage(exchangeRatePlaces), apperror.TypeInvalidExchangeRate)
		default:
			line.ExchangeRate = *item.ExchangeRate
		}
	}

	line.DiscountType, line.DiscountValue = checkDiscount(g, itemField(i, ""), item.DiscountType, item.DiscountValue)
	return line
}

// checkDiscount validates a discount pair. prefix is "" for the invoice-level
// discount and "items[i]." for a line.
func checkDiscount(g *gate, prefix, rawType string, value *decimal.Decimal) (enum.DiscountType, decimal.Decimal) {
	kind := enum.DiscountType(strings.ToLower(strings.TrimSpace(rawType)))
	if !kind.IsValid() {
		g.reject(prefix+"discount_type", "must be one of percentage, amount, none", apperror.TypeValidation)
		kind = enum.DiscountTypeNone
	}
	if kind == "" {
		kind = enum.DiscountTypeNone
	}

	amount := decimal.Zero
	if value != nil {
		amount = *value
	}
	switch {
	case amount.IsNegative():
		g.reject(prefix+"discount_value", "must not be negative", apperror.TypeValidation)
	case kind == enum.DiscountTypePercentage && amount.GreaterThan(hundred):
		g.reject(prefix+"discount_value", "percentage must not exceed 100", apperror.TypeValidation)
	case tooPrecise(amount, inputPlaces):
		g.reject(prefix+"discount_value", placesMessage(inputPlaces), apperror.TypeValidation)
	}
	if kind.IsNone() {
		amount = decimal.Zero
	}
	return kind, amount
}

// tooPrecise reports whether v has significant digits beyond places.
func tooPrecise(v decimal.Decimal, places int32) bool {
	return !v.Equal(v.Truncate(places))
}

func placesMessage(places int32) string {
	return fmt.Sprintf("must have at most %d decimal places", places)
}

func validCurrency(code string) bool {
	return fieldValidator.Var(code, "len=3,alpha") == nil
}

func itemField(i int, name string) string {
	if name == "" {
		return fmt.Sprintf("items[%d].", i)
	}
	return fmt.Sprintf("items[%d].%s", i, name)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buildItems turns validated lines into rows. Amount is quantity × unit price
// before any item discount.
func buildItems(invoiceID uuid.UUID, lines []billing.LineItem) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, entity.InvoiceItem{
			InvoiceID:     invoiceID,
			Position:      i,
			Description:   line.Description,
			Quantity:      billing.ToFloat(line.EffectiveQuantity()),
			UnitPrice:     billing.ToFloat(line.UnitPrice),
			Currency:      line.Currency,
			ExchangeRate:  billing.ToFloat(line.ExchangeRate),
			DiscountType:  line.DiscountType,
			DiscountValue: billing.ToFloat(line.DiscountValue),
			Amount:        billing.ToFloat(billing.Round2(line.EffectiveQuantity().Mul(line.UnitPrice))),
		})
	}
	return items
}

// itemInputs converts stored rows back into request shape so an update
// without items can be re-validated against the merged terms.
func itemInputs(items []entity.InvoiceItem) []InvoiceItemInput {
	out := make([]InvoiceItemInput, 0, len(items))
	for _, item := range items {
		qty := billing.Money(item.Quantity)
		price := billing.Money(item.UnitPrice)
		rate := billing.Money(item.ExchangeRate)
		value := billing.Money(item.DiscountValue)
		out = append(out, InvoiceItemInput{
			Description:   item.Description,
			Quantity:      &qty,
			UnitPrice:     &price,
			Currency:      item.Currency,
			ExchangeRate:  &rate,
			DiscountType:  string(item.DiscountType),
			DiscountValue: &value,
		})
	}
	return out
}

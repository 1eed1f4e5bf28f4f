package billing

import (
	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// Terms are the invoice-level inputs to aggregation.
type Terms struct {
	Currency      string
	TaxRate       decimal.Decimal
	DiscountType  enum.DiscountType
	DiscountValue decimal.Decimal
	// ApplyToDiscountedItems lets the invoice discount also reduce lines that
	// already have an item-level discount.
	ApplyToDiscountedItems bool
}

// Financials is the snapshot persisted on an invoice. Subtotal, DiscountAmount,
// TaxAmount and Total are rounded to two places and Total is always exactly
// Subtotal - DiscountAmount + TaxAmount.
type Financials struct {
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxableAmount      decimal.Decimal
	TaxAmount          decimal.Decimal
	Total              decimal.Decimal
	DiscountableBase   decimal.Decimal
	TotalItemDiscounts decimal.Decimal
	Items              []ItemValuation
}

// Aggregate sums items into invoice totals and applies the invoice discount and tax.
func Aggregate(items []LineItem, terms Terms) Financials {
	subtotal := decimal.Zero
	undiscounted := decimal.Zero
	itemDiscounts := decimal.Zero
	valuations := make([]ItemValuation, 0, len(items))

	for _, item := range items {
		v := ValuateItem(item, terms.Currency)
		valuations = append(valuations, v)

		subtotal = subtotal.Add(v.ConvertedAmount)
		itemDiscounts = itemDiscounts.Add(convert(v.DiscountAmount, item, terms.Currency))
		if !item.HasOwnDiscount() {
			undiscounted = undiscounted.Add(v.ConvertedAmount)
		}
	}

	base := subtotal
	if !terms.ApplyToDiscountedItems {
		base = undiscounted
	}

	discount := applyDiscount(base, terms.DiscountType, terms.DiscountValue)
	taxable := subtotal.Sub(discount)
	taxRate := terms.TaxRate
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	tax := percentOf(taxable, taxRate)

	roundedSubtotal := Round2(subtotal)
	roundedDiscount := Round2(discount)
	roundedTax := Round2(tax)
	roundedTaxable := roundedSubtotal.Sub(roundedDiscount)

	return Financials{
		Subtotal:           roundedSubtotal,
		DiscountAmount:     roundedDiscount,
		TaxableAmount:      roundedTaxable,
		TaxAmount:          roundedTax,
		Total:              roundedTaxable.Add(roundedTax),
		DiscountableBase:   Round2(base),
		TotalItemDiscounts: Round2(itemDiscounts),
		Items:              valuations,
	}
}

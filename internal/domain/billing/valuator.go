package billing

import (
	"strings"

	"github.com/sangkips/invoicely-api/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// LineItem is one priced line of an invoice.
type LineItem struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Currency      string
	ExchangeRate  decimal.Decimal
	DiscountType  enum.DiscountType
	DiscountValue decimal.Decimal
}

// HasOwnDiscount reports whether the item carries an item-level discount.
func (i LineItem) HasOwnDiscount() bool {
	return !i.DiscountType.IsNone() && i.DiscountValue.IsPositive()
}

// EffectiveQuantity returns the quantity, treating zero or negative as 1.
func (i LineItem) EffectiveQuantity() decimal.Decimal {
	if !i.Quantity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return i.Quantity
}

// ItemValuation holds the unrounded amounts derived from one line item.
type ItemValuation struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	NetAmount       decimal.Decimal
	ConvertedAmount decimal.Decimal
}

// ValuateItem prices a single line in the invoice currency.
func ValuateItem(item LineItem, invoiceCurrency string) ItemValuation {
	subtotal := item.EffectiveQuantity().Mul(item.UnitPrice)
	discount := applyDiscount(subtotal, item.DiscountType, item.DiscountValue)
	net := subtotal.Sub(discount)

	return ItemValuation{
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		NetAmount:       net,
		ConvertedAmount: convert(net, item, invoiceCurrency),
	}
}

// SameCurrency compares currency codes ignoring case. An empty item currency
// means the invoice currency.
func SameCurrency(itemCurrency, invoiceCurrency string) bool {
	return itemCurrency == "" || strings.EqualFold(itemCurrency, invoiceCurrency)
}

func convert(amount decimal.Decimal, item LineItem, invoiceCurrency string) decimal.Decimal {
	if SameCurrency(item.Currency, invoiceCurrency) {
		return amount
	}
	rate := item.ExchangeRate
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	return amount.Mul(rate)
}

// applyDiscount never returns more than base and never less than zero.
func applyDiscount(base decimal.Decimal, kind enum.DiscountType, value decimal.Decimal) decimal.Decimal {
	if kind.IsNone() || !value.IsPositive() || !base.IsPositive() {
		return decimal.Zero
	}
	switch kind {
	case enum.DiscountTypePercentage:
		return decimal.Min(percentOf(base, value), base)
	case enum.DiscountTypeAmount:
		return decimal.Min(value, base)
	}
	return decimal.Zero
}

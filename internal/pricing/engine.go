// Package pricing computes cart totals. All arithmetic is decimal; floats
// never touch money. Rounding happens once, at the quote boundary.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/quickplate/storefront/internal/domain"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

// Quote is the priced view of a cart at a moment in time. Subtotal, Tax and
// Total are rounded half-up to two decimal places; TotalMinor is the total
// in minor units (cents) as submitted to the payment processor.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	TotalMinor int64           `json:"total_minor"`
	Currency   string          `json:"currency"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
}

// Engine prices carts under a fixed tax rate and currency.
type Engine struct {
	taxRate  decimal.Decimal
	currency string
}

// NewEngine returns an Engine for the given tax rate (e.g. "0.13") and
// ISO currency code.
func NewEngine(taxRate decimal.Decimal, currency string) *Engine {
	return &Engine{taxRate: taxRate, currency: currency}
}

// Price computes the quote for a cart. Accumulation runs at full decimal
// precision; subtotal, tax and total are each rounded half-up to two
// decimals so the displayed lines always add up.
func (e *Engine) Price(cart *domain.Cart) Quote {
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	rounded := roundMoney(subtotal)
	tax := roundMoney(subtotal.Mul(e.taxRate))
	total := rounded.Add(tax)

	return Quote{
		Subtotal:   rounded,
		Tax:        tax,
		Total:      total,
		TotalMinor: total.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:   e.currency,
		TaxRate:    e.taxRate,
	}
}

// PriceForPayment prices a cart and rejects quotes that cannot be charged.
// A zero or negative total is a caller bug, never something to hand to the
// processor.
func (e *Engine) PriceForPayment(cart *domain.Cart) (Quote, error) {
	q := e.Price(cart)
	if q.TotalMinor <= 0 {
		return Quote{}, apperrors.InvalidInput("payment amount must be positive")
	}
	return q, nil
}

// roundMoney rounds half-up to two decimal places.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

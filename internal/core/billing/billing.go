// Package billing computes order totals. Compute is pure: identical inputs
// give identical Totals, and no intermediate value is rounded. Two-digit
// rounding is applied only by Rounded, at presentation time.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

var (
	DefaultTaxRate     = decimal.New(10, -2) // 0.10
	DefaultServiceRate = decimal.New(5, -2)  // 0.05

	hundred = decimal.New(100, 0)
)

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Tax            decimal.Decimal `json:"tax"`
	ServiceCharge  decimal.Decimal `json:"service_charge"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Rounded returns the presentation view with every figure rounded half-up
// to two decimal places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       t.Subtotal.Round(2),
		DiscountAmount: t.DiscountAmount.Round(2),
		Tax:            t.Tax.Round(2),
		ServiceCharge:  t.ServiceCharge.Round(2),
		TipAmount:      t.TipAmount.Round(2),
		Total:          t.Total.Round(2),
	}
}

// Compute derives the bill for the given items. Discount applies to the
// subtotal; tax and service charge apply to the discounted base; the tip is
// taken from the pre-discount subtotal. discountPercent outside [0,100] or a
// negative tipPercent is rejected, not clamped.
func Compute(items []domain.OrderItem, discountPercent, tipPercent, taxRate, serviceRate decimal.Decimal) (Totals, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Totals{}, fmt.Errorf("%w: discount percent %s out of range [0,100]", domain.ErrValidation, discountPercent)
	}
	if tipPercent.IsNegative() {
		return Totals{}, fmt.Errorf("%w: tip percent %s is negative", domain.ErrValidation, tipPercent)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.New(int64(item.Quantity), 0)))
	}

	discountAmount := subtotal.Mul(discountPercent).Div(hundred)
	taxableBase := subtotal.Sub(discountAmount)
	tax := taxableBase.Mul(taxRate)
	serviceCharge := taxableBase.Mul(serviceRate)
	tipAmount := subtotal.Mul(tipPercent).Div(hundred)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Tax:            tax,
		ServiceCharge:  serviceCharge,
		TipAmount:      tipAmount,
		Total:          taxableBase.Add(tax).Add(serviceCharge).Add(tipAmount),
	}, nil
}

// Refresh recomputes an order's derived monetary fields in place using the
// default tax and service rates.
func Refresh(o *domain.Order) error {
	totals, err := Compute(o.Items, o.DiscountPercent, o.TipPercent, DefaultTaxRate, DefaultServiceRate)
	if err != nil {
		return err
	}
	o.Subtotal = totals.Subtotal
	o.DiscountAmount = totals.DiscountAmount
	o.Tax = totals.Tax
	o.ServiceCharge = totals.ServiceCharge
	o.TipAmount = totals.TipAmount
	o.Total = totals.Total
	return nil
}

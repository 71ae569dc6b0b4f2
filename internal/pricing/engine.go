package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/coupon"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// ErrEmptyCart is returned when totals are requested for a cart with no items.
var ErrEmptyCart = errors.New("cannot compose totals for empty cart")

// Totals is the composed order pricing breakdown. Every monetary field is
// rounded half-up to two places exactly once.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discountAmount"`
	Shipping     decimal.Decimal `json:"shippingAmount"`
	TaxableBase  decimal.Decimal `json:"taxableBase"`
	Tax          decimal.Decimal `json:"taxAmount"`
	Total        decimal.Decimal `json:"totalAmount"`
	CouponCode   string          `json:"couponCode,omitempty"`
	FreeShipping bool            `json:"freeShipping,omitempty"`
}

// Compose runs the fixed composition sequence:
//
//	subtotal -> discount -> shipping -> taxable base -> tax -> total
//
// The order is part of the contract: tax applies to the discounted subtotal
// but never to shipping, and the taxable base is floored at zero so an
// oversized discount can never drive the total negative. outcome and selected
// are optional; a free-shipping outcome zeroes the selected option's cost.
func Compose(snap cart.Snapshot, outcome *coupon.Outcome, selected *shipping.Option, taxRate decimal.Decimal) (Totals, error) {
	if snap.Empty() {
		return Totals{}, ErrEmptyCart
	}
	if err := snap.Validate(); err != nil {
		return Totals{}, err
	}

	subtotal := snap.Subtotal().Round(2)

	discount := decimal.Zero
	shippingAmount := decimal.Zero
	freeShipping := false
	couponCode := ""
	if selected != nil {
		shippingAmount = selected.Cost
	}
	if outcome != nil {
		couponCode = outcome.Code
		switch outcome.Kind {
		case coupon.KindFixed, coupon.KindPercentage:
			discount = outcome.Amount
		case coupon.KindFreeShipping:
			freeShipping = true
			shippingAmount = decimal.Zero
		}
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = discount.Round(2)
	shippingAmount = shippingAmount.Round(2)

	taxableBase := subtotal.Sub(discount)
	if taxableBase.IsNegative() {
		taxableBase = decimal.Zero
	}
	tax := taxableBase.Mul(taxRate).Round(2)
	total := taxableBase.Add(tax).Add(shippingAmount).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		Shipping:     shippingAmount,
		TaxableBase:  taxableBase,
		Tax:          tax,
		Total:        total,
		CouponCode:   couponCode,
		FreeShipping: freeShipping,
	}, nil
}

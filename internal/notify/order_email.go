package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSummary is the slice of order data the confirmation email needs.
type OrderSummary struct {
	OrderID    string
	CouponCode string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// OrderConfirmation renders the confirmation subject and body.
func OrderConfirmation(s OrderSummary) (subject, body string) {
	subject = "Pedido confirmado"
	lines := []string{
		fmt.Sprintf("Recebemos seu pedido %s em %s.", s.OrderID, s.CreatedAt.Format("02/01/2006 15:04")),
		"",
		"Subtotal:  R$ " + s.Subtotal.StringFixed(2),
	}
	if s.Discount.IsPositive() {
		line := "Desconto:  R$ " + s.Discount.StringFixed(2)
		if s.CouponCode != "" {
			line += " (" + s.CouponCode + ")"
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		"Frete:     R$ "+s.Shipping.StringFixed(2),
		"Impostos:  R$ "+s.Tax.StringFixed(2),
		"Total:     R$ "+s.Total.StringFixed(2),
	)
	return subject, strings.Join(lines, "\n")
}

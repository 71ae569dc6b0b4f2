package repo

import (
	"context"
	"encoding/json"

	"github.com/vitrine-shop/backend-loja/internal/checkout"
)

// OrderRepo persists finalized orders.
type OrderRepo struct {
	DB DB
}

// InsertOrder writes the order row with its composed totals. Items are kept
// as a JSON snapshot of what was priced, not live product references.
func (r OrderRepo) InsertOrder(ctx context.Context, order checkout.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, destination_cep, shipping_method_id, coupon_code,
			subtotal, discount_amount, shipping_amount, tax_amount, total_amount,
			free_shipping, items, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		order.ID, order.CustomerID, order.DestinationCEP, order.ShippingMethodID,
		nullableString(order.CouponCode),
		order.Totals.Subtotal, order.Totals.Discount, order.Totals.Shipping,
		order.Totals.Tax, order.Totals.Total, order.Totals.FreeShipping,
		items, order.CreatedAt,
	)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

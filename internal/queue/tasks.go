package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/checkout"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// Task type names. Keep them stable: they are the contract between the API
// process that enqueues and the worker that consumes.
const (
	TypeQuoteAudit = "shipping:quote_audit"
	TypeOrderEmail = "order:confirmation_email"
)

// QuoteAuditPayload carries one shipping calculation to the worker.
type QuoteAuditPayload struct {
	DestinationCEP string          `json:"destinationCep"`
	Region         string          `json:"region"`
	Approximate    bool            `json:"approximate"`
	WeightKg       decimal.Decimal `json:"weightKg"`
	OptionCount    int             `json:"optionCount"`
	CheapestCost   decimal.Decimal `json:"cheapestCost"`
	QuotedAt       time.Time       `json:"quotedAt"`
}

// NewQuoteAuditTask builds the audit task for one calculation.
func NewQuoteAuditTask(calc shipping.Calculation) (*asynq.Task, error) {
	payload, err := json.Marshal(QuoteAuditPayload{
		DestinationCEP: calc.DestinationCEP,
		Region:         calc.Region,
		Approximate:    calc.Approximate,
		WeightKg:       calc.WeightKg,
		OptionCount:    calc.OptionCount,
		CheapestCost:   calc.CheapestCost,
		QuotedAt:       calc.QuotedAt,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeQuoteAudit, payload, asynq.MaxRetry(3), asynq.Queue("low")), nil
}

// OrderEmailPayload carries the order confirmation data to the worker.
type OrderEmailPayload struct {
	OrderID    string          `json:"orderId"`
	CustomerID string          `json:"customerId,omitempty"`
	CouponCode string          `json:"couponCode,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewOrderEmailTask builds the confirmation email task for a finalized order.
func NewOrderEmailTask(order checkout.Order) (*asynq.Task, error) {
	p := OrderEmailPayload{
		OrderID:    order.ID.String(),
		CouponCode: order.CouponCode,
		Subtotal:   order.Totals.Subtotal,
		Discount:   order.Totals.Discount,
		Shipping:   order.Totals.Shipping,
		Tax:        order.Totals.Tax,
		Total:      order.Totals.Total,
		CreatedAt:  order.CreatedAt,
	}
	if order.CustomerID != nil {
		p.CustomerID = order.CustomerID.String()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderEmail, payload, asynq.MaxRetry(5), asynq.Queue("default")), nil
}

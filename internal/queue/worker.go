package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vitrine-shop/backend-loja/internal/notify"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// CalculationWriter persists quote audit rows.
type CalculationWriter interface {
	InsertCalculation(ctx context.Context, calc shipping.Calculation) error
}

// CustomerEmails resolves a customer id to their address.
type CustomerEmails interface {
	EmailByID(ctx context.Context, customerID uuid.UUID) (string, error)
}

// Handlers holds the worker-side dependencies for all task types.
type Handlers struct {
	Audit     CalculationWriter
	Mail      notify.EmailSender
	Customers CustomerEmails
	Logger    zerolog.Logger
}

// Register mounts every task handler on the mux.
func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeQuoteAudit, h.HandleQuoteAudit)
	mux.HandleFunc(TypeOrderEmail, h.HandleOrderEmail)
}

// HandleQuoteAudit inserts the shipping calculation audit row.
func (h Handlers) HandleQuoteAudit(ctx context.Context, task *asynq.Task) error {
	var p QuoteAuditPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if h.Audit == nil {
		return nil
	}
	return h.Audit.InsertCalculation(ctx, shipping.Calculation{
		DestinationCEP: p.DestinationCEP,
		Region:         p.Region,
		Approximate:    p.Approximate,
		WeightKg:       p.WeightKg,
		OptionCount:    p.OptionCount,
		CheapestCost:   p.CheapestCost,
		QuotedAt:       p.QuotedAt,
	})
}

// HandleOrderEmail sends the order confirmation. Orders without a known
// customer address are dropped, not retried.
func (h Handlers) HandleOrderEmail(ctx context.Context, task *asynq.Task) error {
	var p OrderEmailPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if h.Mail == nil || h.Customers == nil || p.CustomerID == "" {
		return nil
	}
	customerID, err := uuid.Parse(p.CustomerID)
	if err != nil {
		return fmt.Errorf("%w: bad customer id %q", asynq.SkipRetry, p.CustomerID)
	}
	to, err := h.Customers.EmailByID(ctx, customerID)
	if err != nil {
		return err
	}
	if to == "" {
		h.Logger.Warn().Str("order_id", p.OrderID).Msg("no email on file, skipping confirmation")
		return nil
	}
	subject, body := notify.OrderConfirmation(notify.OrderSummary{
		OrderID:    p.OrderID,
		CouponCode: p.CouponCode,
		Subtotal:   p.Subtotal,
		Discount:   p.Discount,
		Shipping:   p.Shipping,
		Tax:        p.Tax,
		Total:      p.Total,
		CreatedAt:  p.CreatedAt,
	})
	return h.Mail.Send(to, subject, body)
}

package queue

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/vitrine-shop/backend-loja/internal/checkout"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// Enqueuer pushes tasks onto the queue. It satisfies shipping.AuditSink and
// checkout.Notifier so the services never see asynq directly.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueQuoteAudit queues one shipping calculation for persistence.
func (e Enqueuer) EnqueueQuoteAudit(ctx context.Context, calc shipping.Calculation) error {
	task, err := NewQuoteAuditTask(calc)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}

// EnqueueOrderConfirmation queues the confirmation email for an order.
func (e Enqueuer) EnqueueOrderConfirmation(ctx context.Context, order checkout.Order) error {
	task, err := NewOrderEmailTask(order)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}

package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Usage records one committed coupon redemption. Rows are written only at
// order finalization; cart-time evaluation never creates them.
type Usage struct {
	CouponID       uuid.UUID
	CustomerID     *uuid.UUID
	OrderID        uuid.UUID
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// Store provides the read-side coupon lookups used during evaluation.
type Store interface {
	// GetByCode returns the rule for a normalized code or ErrNotFound.
	GetByCode(ctx context.Context, code string) (Rule, error)
	// CountUsageByCustomer returns committed redemptions for one customer.
	CountUsageByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int, error)
}

// HistoryStore exposes the customer/order history lookups evaluation needs.
type HistoryStore interface {
	PastOrderCount(ctx context.Context, customerID uuid.UUID) (int, error)
	CustomerGroup(ctx context.Context, customerID uuid.UUID) (string, error)
}

// SettleStore is the transactional surface used when an order is finalized.
// Implementations are expected to be bound to the caller's transaction so the
// locked recheck and the usage insert commit atomically.
type SettleStore interface {
	GetByCodeForUpdate(ctx context.Context, code string) (Rule, error)
	HasUsageForOrder(ctx context.Context, couponID, orderID uuid.UUID) (bool, error)
	CountUsageByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int, error)
	InsertUsage(ctx context.Context, usage Usage) error
	IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error
}

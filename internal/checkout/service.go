package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/coupon"
	"github.com/vitrine-shop/backend-loja/internal/events"
	"github.com/vitrine-shop/backend-loja/internal/lock"
	"github.com/vitrine-shop/backend-loja/internal/obs"
	"github.com/vitrine-shop/backend-loja/internal/pricing"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// ErrNoShippingSelected is returned by Finalize when the chosen method is not
// among the quoted options.
var ErrNoShippingSelected = errors.New("selected shipping method not available for destination")

// Order is a finalized order row with its composed totals.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	CustomerID       *uuid.UUID      `json:"customerId,omitempty"`
	DestinationCEP   string          `json:"destinationCep"`
	ShippingMethodID *uuid.UUID      `json:"shippingMethodId,omitempty"`
	CouponCode       string          `json:"couponCode,omitempty"`
	Totals           pricing.Totals  `json:"totals"`
	Items            []cart.Item     `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// OrderStore persists finalized orders.
type OrderStore interface {
	InsertOrder(ctx context.Context, order Order) error
}

// Tx is the store surface of one finalization transaction.
type Tx interface {
	Orders() OrderStore
	CouponSettle() coupon.SettleStore
	Events() events.Store
}

// TxRunner opens a database transaction and hands its stores to fn. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Notifier enqueues post-commit work such as the confirmation email.
type Notifier interface {
	EnqueueOrderConfirmation(ctx context.Context, order Order) error
}

// Input carries everything a quote or finalization needs. The applied coupon
// code travels with the request: the pricing core holds no session state.
type Input struct {
	Snapshot       cart.Snapshot
	CustomerID     *uuid.UUID
	CouponCode     string
	DestinationCEP string
	// MethodID picks one of the quoted options. Nil means no selection yet.
	MethodID *uuid.UUID
}

// QuoteResult is the provisional checkout view. Coupon and shipping failures
// are surfaced alongside the composed totals instead of aborting the quote:
// the cart stays priceable while the customer fixes their input.
type QuoteResult struct {
	Totals        pricing.Totals  `json:"totals"`
	Coupon        *coupon.Outcome `json:"coupon,omitempty"`
	CouponError   string          `json:"couponError,omitempty"`
	Quote         *shipping.Quote `json:"shipping,omitempty"`
	Selected      *shipping.Option `json:"selectedOption,omitempty"`
	ShippingError string          `json:"shippingError,omitempty"`

	couponErr error
}

// Service composes the three calculators into the checkout flow.
type Service struct {
	Coupons  *coupon.Service
	Shipping *shipping.Service
	Runner   TxRunner
	Bus      func(tx Tx) *events.Bus
	Notify   Notifier
	Locker   *lock.Locker
	TaxRate  decimal.Decimal
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices the cart provisionally. A rejected coupon or an unserved
// destination degrades to zero discount / zero shipping with the reason
// reported, matching the storefront behavior of showing the problem inline.
func (s *Service) Quote(ctx context.Context, in Input) (QuoteResult, error) {
	if in.Snapshot.Empty() {
		return QuoteResult{}, pricing.ErrEmptyCart
	}
	if err := in.Snapshot.Validate(); err != nil {
		return QuoteResult{}, err
	}

	var result QuoteResult
	if code := coupon.NormalizeCode(in.CouponCode); code != "" {
		outcome, err := s.Coupons.Evaluate(ctx, code, in.CustomerID, in.Snapshot, code)
		if err != nil {
			result.CouponError = err.Error()
			result.couponErr = err
		} else {
			result.Coupon = &outcome
		}
	}

	if strings.TrimSpace(in.DestinationCEP) != "" {
		quote, err := s.Shipping.Quote(ctx, in.DestinationCEP, in.Snapshot)
		if err != nil {
			result.ShippingError = err.Error()
		} else {
			result.Quote = &quote
			result.Selected = pickOption(quote, in.MethodID)
		}
	}

	totals, err := pricing.Compose(in.Snapshot, result.Coupon, result.Selected, s.TaxRate)
	if err != nil {
		return QuoteResult{}, err
	}
	result.Totals = totals
	s.recordCompose(totals)
	return result, nil
}

// pickOption returns the option matching methodID, defaulting to the cheapest
// when nothing is selected yet.
func pickOption(quote shipping.Quote, methodID *uuid.UUID) *shipping.Option {
	if len(quote.Options) == 0 {
		return nil
	}
	if methodID == nil {
		opt := quote.Options[0]
		return &opt
	}
	for _, opt := range quote.Options {
		if opt.MethodID == *methodID {
			o := opt
			return &o
		}
	}
	return nil
}

// Finalize turns a quote into an order. Everything that mutates state runs in
// one transaction: the order insert, the coupon settlement with its locked
// limit recheck, and the domain events. The confirmation email is enqueued
// only after the transaction commits.
func (s *Service) Finalize(ctx context.Context, in Input) (Order, error) {
	if s == nil || s.Runner == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	if s.Locker != nil && in.CustomerID != nil {
		var order Order
		err := s.Locker.WithLock(ctx, "checkout:finalize:"+in.CustomerID.String(), 15*time.Second, func(ctx context.Context) error {
			var innerErr error
			order, innerErr = s.finalize(ctx, in)
			return innerErr
		})
		return order, err
	}
	return s.finalize(ctx, in)
}

func (s *Service) finalize(ctx context.Context, in Input) (Order, error) {
	quote, err := s.Quote(ctx, in)
	if err != nil {
		return Order{}, err
	}
	// Finalization is strict where quoting is lenient: a coupon the customer
	// still has applied must evaluate cleanly, and a selected method must be
	// quotable.
	if quote.couponErr != nil {
		return Order{}, quote.couponErr
	}
	if in.MethodID != nil && quote.Selected == nil {
		return Order{}, ErrNoShippingSelected
	}

	order := Order{
		ID:             uuid.New(),
		CustomerID:     in.CustomerID,
		DestinationCEP: shipping.NormalizeCEP(in.DestinationCEP),
		CouponCode:     quote.Totals.CouponCode,
		Totals:         quote.Totals,
		Items:          in.Snapshot.Items,
		CreatedAt:      s.now(),
	}
	if quote.Selected != nil {
		id := quote.Selected.MethodID
		order.ShippingMethodID = &id
	}

	err = s.Runner.WithinTx(ctx, func(tx Tx) error {
		if err := tx.Orders().InsertOrder(ctx, order); err != nil {
			return err
		}
		if order.CouponCode != "" {
			if err := s.Coupons.Settle(ctx, tx.CouponSettle(), order.CouponCode, order.ID, order.CustomerID, order.Totals.Discount); err != nil {
				return err
			}
		}
		if s.Bus != nil {
			bus := s.Bus(tx)
			if _, err := bus.Emit(ctx, events.TopicOrderCreated, order.ID, map[string]any{
				"orderId": order.ID.String(),
				"total":   order.Totals.Total.StringFixed(2),
			}); err != nil {
				return err
			}
			if order.CouponCode != "" {
				if _, err := bus.Emit(ctx, events.TopicCouponSettled, order.ID, map[string]any{
					"orderId":    order.ID.String(),
					"couponCode": order.CouponCode,
					"discount":   order.Totals.Discount.StringFixed(2),
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if s.Notify != nil {
		if err := s.Notify.EnqueueOrderConfirmation(ctx, order); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to enqueue order confirmation")
		}
	}
	return order, nil
}

func (s *Service) recordCompose(totals pricing.Totals) {
	if obs.CheckoutTotalsComposedTotal == nil {
		return
	}
	label := "without_discount"
	if totals.Discount.IsPositive() || totals.FreeShipping {
		label = "with_discount"
	}
	obs.CheckoutTotalsComposedTotal.WithLabelValues(label).Inc()
}

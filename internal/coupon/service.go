package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cache"
	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/obs"
)

// Service wires the pure evaluation engine to the boundary stores. Evaluation
// is provisional: it has no side effects and is safe to call on every cart
// view. Usage is committed only through Settle.
type Service struct {
	Store   Store
	History HistoryStore
	Cache   *cache.Cache
	Now     func() time.Time
	// DefaultPerCustomerLimit applies when a coupon record carries no
	// per-customer limit of its own.
	DefaultPerCustomerLimit int
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(code string) string {
	return "coupon:code:" + code
}

// Evaluate normalizes the code, loads the rule and runs the eligibility
// checks against the snapshot. appliedCode names the coupon the session
// already holds, if any; passing the same code re-validates it.
func (s *Service) Evaluate(ctx context.Context, code string, customerID *uuid.UUID, snap cart.Snapshot, appliedCode string) (Outcome, error) {
	if s == nil || s.Store == nil {
		return Outcome{}, errors.New("coupon service not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Outcome{}, fmt.Errorf("code is required: %w", ErrNotFound)
	}
	if snap.Empty() {
		return Outcome{}, cart.ErrEmpty
	}
	if err := snap.Validate(); err != nil {
		return Outcome{}, err
	}

	rule, err := s.lookupRule(ctx, normalized)
	if err != nil {
		s.record(Kind("unknown"), err)
		return Outcome{}, err
	}

	ec := EvalContext{
		Now:         s.now(),
		Snapshot:    snap,
		AppliedCode: appliedCode,
	}
	if customerID != nil {
		ec.CustomerUsed, err = s.Store.CountUsageByCustomer(ctx, rule.ID, *customerID)
		if err != nil {
			return Outcome{}, fmt.Errorf("count coupon usage: %w", err)
		}
		if s.History != nil {
			ec.PastOrders, err = s.History.PastOrderCount(ctx, *customerID)
			if err != nil {
				return Outcome{}, fmt.Errorf("load order history: %w", err)
			}
			ec.CustomerGroup, err = s.History.CustomerGroup(ctx, *customerID)
			if err != nil {
				return Outcome{}, fmt.Errorf("load customer group: %w", err)
			}
		}
	}
	if rule.PerCustomerLimit <= 0 {
		rule.PerCustomerLimit = s.DefaultPerCustomerLimit
	}

	outcome, err := Evaluate(rule, ec)
	s.record(rule.Kind, err)
	return outcome, err
}

// lookupRule serves reads through the redis cache; the cached copy may carry a
// slightly stale UsedCount, which is acceptable because Settle re-checks the
// limits under a row lock.
func (s *Service) lookupRule(ctx context.Context, normalized string) (Rule, error) {
	var rule Rule
	if found, err := s.Cache.GetJSON(ctx, cacheKey(normalized), &rule); err == nil && found {
		return rule, nil
	}
	rule, err := s.Store.GetByCode(ctx, normalized)
	if err != nil {
		return Rule{}, err
	}
	_ = s.Cache.SetJSON(ctx, cacheKey(normalized), rule)
	return rule, nil
}

// Settle commits a redemption at order finalization. The store must be bound
// to the caller's transaction: the rule row is locked, the limits re-checked
// and the usage inserted atomically, closing the race where two concurrent
// checkouts both passed the provisional check.
func (s *Service) Settle(ctx context.Context, st SettleStore, code string, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) error {
	if s == nil {
		return errors.New("coupon service not configured")
	}
	if st == nil {
		return errors.New("coupon settle store not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" || orderID == uuid.Nil {
		return nil
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	rule, err := st.GetByCodeForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The coupon disappeared between evaluation and finalization;
			// nothing to settle.
			s.settled("missing")
			return nil
		}
		return err
	}

	exists, err := st.HasUsageForOrder(ctx, rule.ID, orderID)
	if err != nil {
		return err
	}
	if exists {
		s.settled("duplicate")
		return nil
	}

	// Optimistic recheck under the row lock.
	if rule.UsageLimit != nil && rule.UsedCount >= *rule.UsageLimit {
		s.settled("limit_reached")
		return ErrGlobalUsageLimitReached
	}
	if customerID != nil {
		limit := rule.PerCustomerLimit
		if limit <= 0 {
			limit = s.DefaultPerCustomerLimit
		}
		if limit > 0 {
			used, err := st.CountUsageByCustomer(ctx, rule.ID, *customerID)
			if err != nil {
				return err
			}
			if used >= limit {
				s.settled("limit_reached")
				return ErrPerCustomerUsageLimitReached
			}
		}
	}

	if err := st.InsertUsage(ctx, Usage{
		CouponID:       rule.ID,
		CustomerID:     customerID,
		OrderID:        orderID,
		DiscountAmount: amount,
		UsedAt:         s.now(),
	}); err != nil {
		return err
	}
	if err := st.IncrementUsedCount(ctx, rule.ID); err != nil {
		return err
	}
	_ = s.Cache.Invalidate(ctx, cacheKey(normalized))
	s.settled("committed")
	return nil
}

func (s *Service) record(kind Kind, err error) {
	if obs.CouponEvaluationsTotal == nil {
		return
	}
	obs.CouponEvaluationsTotal.WithLabelValues(string(kind), resultLabel(err)).Inc()
}

func (s *Service) settled(result string) {
	if obs.CouponSettlementsTotal == nil {
		return
	}
	obs.CouponSettlementsTotal.WithLabelValues(result).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrOutsideValidityWindow):
		return "outside_window"
	case errors.Is(err, ErrGlobalUsageLimitReached):
		return "usage_limit"
	case errors.Is(err, ErrPerCustomerUsageLimitReached):
		return "per_customer_limit"
	case errors.Is(err, ErrBelowMinimumAmount):
		return "below_minimum"
	case errors.Is(err, ErrNotFirstPurchase):
		return "not_first_purchase"
	case errors.Is(err, ErrCustomerGroupNotAllowed):
		return "customer_group"
	case errors.Is(err, ErrNoEligibleItems):
		return "no_eligible_items"
	case errors.Is(err, ErrNotCombinable):
		return "not_combinable"
	default:
		return "error"
	}
}

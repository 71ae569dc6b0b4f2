package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
)

var (
	// ErrNotFound is returned when no coupon matches the supplied code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been deactivated.
	ErrInactive = errors.New("coupon not active")
	// ErrOutsideValidityWindow is returned outside [starts_at, expires_at].
	ErrOutsideValidityWindow = errors.New("coupon outside validity window")
	// ErrGlobalUsageLimitReached indicates the global usage quota is exhausted.
	ErrGlobalUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerCustomerUsageLimitReached indicates the customer exceeded their allowance.
	ErrPerCustomerUsageLimitReached = errors.New("coupon per-customer usage limit reached")
	// ErrBelowMinimumAmount indicates the cart subtotal did not meet the coupon requirement.
	ErrBelowMinimumAmount = errors.New("cart below coupon minimum amount")
	// ErrNotFirstPurchase is returned for first-purchase coupons when the customer has prior orders.
	ErrNotFirstPurchase = errors.New("coupon restricted to first purchase")
	// ErrCustomerGroupNotAllowed is returned when the coupon is restricted to other customer groups.
	ErrCustomerGroupNotAllowed = errors.New("coupon not available for customer group")
	// ErrNoEligibleItems is returned when no cart item satisfies the coupon scope.
	ErrNoEligibleItems = errors.New("no eligible items for coupon")
	// ErrNotCombinable is returned when another coupon is already applied.
	ErrNotCombinable = errors.New("coupon cannot be combined")
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindFixed subtracts a fixed amount, capped at the eligible subtotal.
	KindFixed Kind = "fixed"
	// KindPercentage subtracts a percentage of the eligible subtotal,
	// optionally capped by a maximum discount.
	KindPercentage Kind = "percentage"
	// KindFreeShipping zeroes the shipping leg; it never discounts the subtotal.
	KindFreeShipping Kind = "free_shipping"
)

// Rule captures a coupon record's runtime constraints.
type Rule struct {
	ID                uuid.UUID
	Code              string
	Kind              Kind
	Value             decimal.Decimal
	MinimumAmount     *decimal.Decimal
	MaximumDiscount   *decimal.Decimal
	UsageLimit        *int
	UsedCount         int
	PerCustomerLimit  int
	StartsAt          *time.Time
	ExpiresAt         *time.Time
	Active            bool
	FirstPurchaseOnly bool
	Combinable        bool
	ProductIDs        []uuid.UUID
	CategoryIDs       []uuid.UUID
	BrandIDs          []uuid.UUID
	CustomerGroups    []string
}

// Scoped reports whether the rule restricts eligibility to a subset of items.
func (r Rule) Scoped() bool {
	return len(r.ProductIDs) > 0 || len(r.CategoryIDs) > 0 || len(r.BrandIDs) > 0
}

// EvalContext carries everything Evaluate needs besides the rule itself.
// It is assembled by the service from the boundary stores; the engine never
// performs I/O.
type EvalContext struct {
	Now           time.Time
	Snapshot      cart.Snapshot
	CustomerUsed  int
	PastOrders    int
	CustomerGroup string
	// AppliedCode is the coupon already held by the session, if any.
	AppliedCode string
}

// Outcome is the serialisable result of a successful evaluation.
type Outcome struct {
	Kind             Kind            `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Code             string          `json:"couponCode"`
	EligibleSubtotal decimal.Decimal `json:"eligibleSubtotal"`
	FreeShipping     bool            `json:"freeShipping"`
}

// NormalizeCode canonicalises a user-supplied coupon code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate runs the eligibility checks in their fixed order and, when all
// pass, computes the discount. The check order is part of the contract:
// callers rely on the first failing reason being deterministic.
func Evaluate(r Rule, ec EvalContext) (Outcome, error) {
	if !r.Active {
		return Outcome{}, ErrInactive
	}
	if r.StartsAt != nil && ec.Now.Before(*r.StartsAt) {
		return Outcome{}, ErrOutsideValidityWindow
	}
	if r.ExpiresAt != nil && ec.Now.After(*r.ExpiresAt) {
		return Outcome{}, ErrOutsideValidityWindow
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return Outcome{}, ErrGlobalUsageLimitReached
	}
	if r.PerCustomerLimit > 0 && ec.CustomerUsed >= r.PerCustomerLimit {
		return Outcome{}, ErrPerCustomerUsageLimitReached
	}
	if r.MinimumAmount != nil && ec.Snapshot.Subtotal().LessThan(*r.MinimumAmount) {
		return Outcome{}, ErrBelowMinimumAmount
	}
	if r.FirstPurchaseOnly && ec.PastOrders > 0 {
		return Outcome{}, ErrNotFirstPurchase
	}
	if len(r.CustomerGroups) > 0 && !containsFold(r.CustomerGroups, ec.CustomerGroup) {
		return Outcome{}, ErrCustomerGroupNotAllowed
	}
	eligible := EligibleSubtotal(ec.Snapshot, r)
	if eligible.IsZero() {
		return Outcome{}, ErrNoEligibleItems
	}
	if applied := NormalizeCode(ec.AppliedCode); applied != "" && applied != NormalizeCode(r.Code) && !r.Combinable {
		return Outcome{}, ErrNotCombinable
	}

	outcome := Outcome{
		Kind:             r.Kind,
		Code:             NormalizeCode(r.Code),
		EligibleSubtotal: eligible,
	}
	switch r.Kind {
	case KindFreeShipping:
		outcome.FreeShipping = true
		outcome.Amount = decimal.Zero
	default:
		outcome.Amount = computeDiscount(eligible, r).Round(2)
	}
	return outcome, nil
}

// EligibleSubtotal sums the line subtotals of items matching the rule's scope.
// An unscoped rule covers the whole cart.
func EligibleSubtotal(snap cart.Snapshot, r Rule) decimal.Decimal {
	if !r.Scoped() {
		return snap.Subtotal()
	}
	total := decimal.Zero
	for _, it := range snap.Items {
		if ruleMatchesItem(r, it) {
			total = total.Add(it.LineSubtotal())
		}
	}
	return total
}

func ruleMatchesItem(r Rule, it cart.Item) bool {
	for _, id := range r.ProductIDs {
		if id == it.ProductID {
			return true
		}
	}
	if it.CategoryID != nil {
		for _, id := range r.CategoryIDs {
			if id == *it.CategoryID {
				return true
			}
		}
	}
	if it.BrandID != nil {
		for _, id := range r.BrandIDs {
			if id == *it.BrandID {
				return true
			}
		}
	}
	return false
}

func computeDiscount(eligible decimal.Decimal, r Rule) decimal.Decimal {
	var discount decimal.Decimal
	switch r.Kind {
	case KindPercentage:
		discount = eligible.Mul(r.Value).Div(decimal.NewFromInt(100))
		if r.MaximumDiscount != nil && discount.GreaterThan(*r.MaximumDiscount) {
			discount = *r.MaximumDiscount
		}
	default:
		discount = r.Value
	}
	// Fixed discounts are capped at the eligible subtotal, not the full cart.
	if discount.GreaterThan(eligible) {
		discount = eligible
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}

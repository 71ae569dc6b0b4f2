package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitrine-shop/backend-loja/internal/cart"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotWorth(subtotal string) cart.Snapshot {
	return cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec(subtotal), Quantity: 1},
	}}
}

func activeRule(kind Kind, value string) Rule {
	return Rule{
		ID:     uuid.New(),
		Code:   "DESCONTO10",
		Kind:   kind,
		Value:  dec(value),
		Active: true,
	}
}

func evalCtx(snap cart.Snapshot) EvalContext {
	return EvalContext{Now: time.Now(), Snapshot: snap}
}

func TestPercentageDiscount(t *testing.T) {
	rule := activeRule(KindPercentage, "10")
	out, err := Evaluate(rule, evalCtx(snapshotWorth("200.00")))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(dec("20.00")), "got %s", out.Amount)
	require.Equal(t, KindPercentage, out.Kind)
}

func TestPercentageCappedByMaximumDiscount(t *testing.T) {
	maxDiscount := dec("15.00")
	rule := activeRule(KindPercentage, "10")
	rule.MaximumDiscount = &maxDiscount
	out, err := Evaluate(rule, evalCtx(snapshotWorth("200.00")))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(maxDiscount), "got %s", out.Amount)
}

func TestFixedDiscountCappedAtSubtotal(t *testing.T) {
	rule := activeRule(KindFixed, "300.00")
	out, err := Evaluate(rule, evalCtx(snapshotWorth("200.00")))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(dec("200.00")), "got %s", out.Amount)
}

func TestFreeShippingCarriesNoMonetaryAmount(t *testing.T) {
	rule := activeRule(KindFreeShipping, "0")
	out, err := Evaluate(rule, evalCtx(snapshotWorth("80.00")))
	require.NoError(t, err)
	require.True(t, out.FreeShipping)
	require.True(t, out.Amount.IsZero())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	rule := activeRule(KindPercentage, "10")
	ec := evalCtx(snapshotWorth("200.00"))
	first, err1 := Evaluate(rule, ec)
	second, err2 := Evaluate(rule, ec)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, first, second)
}

func TestFirstFailureWins(t *testing.T) {
	// Inactive, expired and over the global limit at once: the inactive
	// check must report first.
	expired := time.Now().Add(-time.Hour)
	limit := 1
	rule := activeRule(KindFixed, "10.00")
	rule.Active = false
	rule.ExpiresAt = &expired
	rule.UsageLimit = &limit
	rule.UsedCount = 5
	_, err := Evaluate(rule, evalCtx(snapshotWorth("100.00")))
	require.ErrorIs(t, err, ErrInactive)
}

func TestEligibilityOrder(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	future := time.Now().Add(2 * time.Hour)
	minAmount := dec("500.00")
	limit := 10

	base := func() Rule {
		r := activeRule(KindFixed, "10.00")
		r.StartsAt = &past
		r.ExpiresAt = &future
		r.UsageLimit = &limit
		r.PerCustomerLimit = 2
		return r
	}

	t.Run("expired before usage limits", func(t *testing.T) {
		r := base()
		r.ExpiresAt = &past
		r.UsedCount = 99
		_, err := Evaluate(r, evalCtx(snapshotWorth("100.00")))
		require.ErrorIs(t, err, ErrOutsideValidityWindow)
	})
	t.Run("global limit before per-customer", func(t *testing.T) {
		r := base()
		r.UsedCount = 10
		ec := evalCtx(snapshotWorth("100.00"))
		ec.CustomerUsed = 5
		_, err := Evaluate(r, ec)
		require.ErrorIs(t, err, ErrGlobalUsageLimitReached)
	})
	t.Run("per-customer before minimum", func(t *testing.T) {
		r := base()
		r.MinimumAmount = &minAmount
		ec := evalCtx(snapshotWorth("100.00"))
		ec.CustomerUsed = 2
		_, err := Evaluate(r, ec)
		require.ErrorIs(t, err, ErrPerCustomerUsageLimitReached)
	})
	t.Run("minimum before first purchase", func(t *testing.T) {
		r := base()
		r.MinimumAmount = &minAmount
		r.FirstPurchaseOnly = true
		ec := evalCtx(snapshotWorth("100.00"))
		ec.PastOrders = 3
		_, err := Evaluate(r, ec)
		require.ErrorIs(t, err, ErrBelowMinimumAmount)
	})
	t.Run("first purchase before scoping", func(t *testing.T) {
		r := base()
		r.FirstPurchaseOnly = true
		r.ProductIDs = []uuid.UUID{uuid.New()}
		ec := evalCtx(snapshotWorth("100.00"))
		ec.PastOrders = 1
		_, err := Evaluate(r, ec)
		require.ErrorIs(t, err, ErrNotFirstPurchase)
	})
}

func TestExpiredCoupon(t *testing.T) {
	expired := time.Now().Add(-time.Minute)
	rule := activeRule(KindPercentage, "10")
	rule.ExpiresAt = &expired
	_, err := Evaluate(rule, evalCtx(snapshotWorth("200.00")))
	require.ErrorIs(t, err, ErrOutsideValidityWindow)
}

func TestScopedDiscountUsesEligibleSubtotalOnly(t *testing.T) {
	scopedCategory := uuid.New()
	otherCategory := uuid.New()
	snap := cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec("50.00"), Quantity: 1, CategoryID: &scopedCategory},
		{ProductID: uuid.New(), UnitPrice: dec("150.00"), Quantity: 1, CategoryID: &otherCategory},
	}}

	rule := activeRule(KindPercentage, "10")
	rule.CategoryIDs = []uuid.UUID{scopedCategory}
	out, err := Evaluate(rule, evalCtx(snap))
	require.NoError(t, err)
	require.True(t, out.EligibleSubtotal.Equal(dec("50.00")))
	require.True(t, out.Amount.Equal(dec("5.00")), "got %s", out.Amount)

	// A fixed discount is capped at the eligible subtotal, not the cart total.
	fixed := activeRule(KindFixed, "120.00")
	fixed.CategoryIDs = []uuid.UUID{scopedCategory}
	out, err = Evaluate(fixed, evalCtx(snap))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(dec("50.00")), "got %s", out.Amount)
}

func TestScopedCouponWithNoMatchingItems(t *testing.T) {
	rule := activeRule(KindPercentage, "10")
	rule.ProductIDs = []uuid.UUID{uuid.New()}
	_, err := Evaluate(rule, evalCtx(snapshotWorth("200.00")))
	require.ErrorIs(t, err, ErrNoEligibleItems)
}

func TestNotCombinableRejectsSecondCoupon(t *testing.T) {
	rule := activeRule(KindFixed, "10.00")
	rule.Combinable = false
	ec := evalCtx(snapshotWorth("200.00"))
	ec.AppliedCode = "OUTRO5"
	_, err := Evaluate(rule, ec)
	require.ErrorIs(t, err, ErrNotCombinable)

	// Re-applying the same code is not stacking.
	ec.AppliedCode = "desconto10"
	_, err = Evaluate(rule, ec)
	require.NoError(t, err)
}

func TestCustomerGroupRestriction(t *testing.T) {
	rule := activeRule(KindFixed, "10.00")
	rule.CustomerGroups = []string{"vip"}
	ec := evalCtx(snapshotWorth("200.00"))
	ec.CustomerGroup = "regular"
	_, err := Evaluate(rule, ec)
	require.ErrorIs(t, err, ErrCustomerGroupNotAllowed)

	ec.CustomerGroup = "VIP"
	_, err = Evaluate(rule, ec)
	require.NoError(t, err)
}

func TestDiscountRoundedHalfUp(t *testing.T) {
	// 33.33 * 7.5% = 2.49975 -> 2.50
	rule := activeRule(KindPercentage, "7.5")
	out, err := Evaluate(rule, evalCtx(snapshotWorth("33.33")))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(dec("2.50")), "got %s", out.Amount)
}

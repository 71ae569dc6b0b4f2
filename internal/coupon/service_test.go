package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitrine-shop/backend-loja/internal/cart"
)

type stubStore struct {
	rules      map[string]Rule
	usageCount int
}

func (s *stubStore) GetByCode(_ context.Context, code string) (Rule, error) {
	rule, ok := s.rules[code]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

func (s *stubStore) CountUsageByCustomer(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return s.usageCount, nil
}

type stubHistory struct {
	orders int
	group  string
}

func (s *stubHistory) PastOrderCount(context.Context, uuid.UUID) (int, error) {
	return s.orders, nil
}

func (s *stubHistory) CustomerGroup(context.Context, uuid.UUID) (string, error) {
	return s.group, nil
}

type stubSettleStore struct {
	rule        Rule
	ruleErr     error
	hasUsage    bool
	usageCount  int
	inserted    []Usage
	incremented int
}

func (s *stubSettleStore) GetByCodeForUpdate(context.Context, string) (Rule, error) {
	if s.ruleErr != nil {
		return Rule{}, s.ruleErr
	}
	return s.rule, nil
}

func (s *stubSettleStore) HasUsageForOrder(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.hasUsage, nil
}

func (s *stubSettleStore) CountUsageByCustomer(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return s.usageCount, nil
}

func (s *stubSettleStore) InsertUsage(_ context.Context, usage Usage) error {
	s.inserted = append(s.inserted, usage)
	return nil
}

func (s *stubSettleStore) IncrementUsedCount(context.Context, uuid.UUID) error {
	s.incremented++
	return nil
}

func testSnapshot() cart.Snapshot {
	return cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec("100.00"), Quantity: 2},
	}}
}

func TestEvaluateNormalizesCode(t *testing.T) {
	store := &stubStore{rules: map[string]Rule{
		"DESCONTO10": {ID: uuid.New(), Code: "DESCONTO10", Kind: KindPercentage, Value: dec("10"), Active: true},
	}}
	svc := &Service{Store: store, DefaultPerCustomerLimit: 1}

	out, err := svc.Evaluate(context.Background(), "  desconto10 ", nil, testSnapshot(), "")
	require.NoError(t, err)
	require.Equal(t, "DESCONTO10", out.Code)
	require.True(t, out.Amount.Equal(dec("20.00")))
}

func TestEvaluateUnknownCode(t *testing.T) {
	svc := &Service{Store: &stubStore{rules: map[string]Rule{}}}
	_, err := svc.Evaluate(context.Background(), "NADA", nil, testSnapshot(), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluateEmptyCartDisallowed(t *testing.T) {
	svc := &Service{Store: &stubStore{rules: map[string]Rule{}}}
	_, err := svc.Evaluate(context.Background(), "DESCONTO10", nil, cart.Snapshot{}, "")
	require.ErrorIs(t, err, cart.ErrEmpty)
}

func TestEvaluateAppliesDefaultPerCustomerLimit(t *testing.T) {
	customerID := uuid.New()
	store := &stubStore{
		rules: map[string]Rule{
			"PROMO": {ID: uuid.New(), Code: "PROMO", Kind: KindFixed, Value: dec("5.00"), Active: true},
		},
		usageCount: 1,
	}
	svc := &Service{Store: store, History: &stubHistory{}, DefaultPerCustomerLimit: 1}

	_, err := svc.Evaluate(context.Background(), "PROMO", &customerID, testSnapshot(), "")
	require.ErrorIs(t, err, ErrPerCustomerUsageLimitReached)
}

func TestEvaluateFirstPurchaseOnly(t *testing.T) {
	customerID := uuid.New()
	store := &stubStore{rules: map[string]Rule{
		"BEMVINDO": {ID: uuid.New(), Code: "BEMVINDO", Kind: KindFixed, Value: dec("15.00"), Active: true, FirstPurchaseOnly: true},
	}}
	svc := &Service{Store: store, History: &stubHistory{orders: 2}, DefaultPerCustomerLimit: 1}

	_, err := svc.Evaluate(context.Background(), "BEMVINDO", &customerID, testSnapshot(), "")
	require.ErrorIs(t, err, ErrNotFirstPurchase)
}

func TestSettleCommitsUsageOnce(t *testing.T) {
	couponID := uuid.New()
	orderID := uuid.New()
	customerID := uuid.New()
	limit := 100
	st := &stubSettleStore{rule: Rule{ID: couponID, Code: "PROMO", UsageLimit: &limit, PerCustomerLimit: 2}}
	svc := &Service{DefaultPerCustomerLimit: 1}

	err := svc.Settle(context.Background(), st, "promo", orderID, &customerID, dec("20.00"))
	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	require.Equal(t, couponID, st.inserted[0].CouponID)
	require.Equal(t, orderID, st.inserted[0].OrderID)
	require.Equal(t, 1, st.incremented)

	// A retry for the same order is a no-op.
	st.hasUsage = true
	err = svc.Settle(context.Background(), st, "promo", orderID, &customerID, dec("20.00"))
	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	require.Equal(t, 1, st.incremented)
}

func TestSettleRechecksLimitsUnderLock(t *testing.T) {
	limit := 3
	st := &stubSettleStore{rule: Rule{ID: uuid.New(), Code: "PROMO", UsageLimit: &limit, UsedCount: 3}}
	svc := &Service{}

	err := svc.Settle(context.Background(), st, "PROMO", uuid.New(), nil, dec("10.00"))
	require.ErrorIs(t, err, ErrGlobalUsageLimitReached)
	require.Empty(t, st.inserted)
}

func TestSettleMissingCouponIsNoop(t *testing.T) {
	st := &stubSettleStore{ruleErr: ErrNotFound}
	svc := &Service{}
	require.NoError(t, svc.Settle(context.Background(), st, "GONE", uuid.New(), nil, dec("10.00")))
	require.Empty(t, st.inserted)
}

func TestServiceNowInjectable(t *testing.T) {
	expired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &stubStore{rules: map[string]Rule{
		"ANTIGO": {ID: uuid.New(), Code: "ANTIGO", Kind: KindFixed, Value: dec("5.00"), Active: true, ExpiresAt: &expired},
	}}
	svc := &Service{Store: store, Now: func() time.Time { return expired.Add(time.Hour) }}
	_, err := svc.Evaluate(context.Background(), "ANTIGO", nil, testSnapshot(), "")
	require.ErrorIs(t, err, ErrOutsideValidityWindow)

	svc.Now = func() time.Time { return expired.Add(-time.Hour) }
	out, err := svc.Evaluate(context.Background(), "ANTIGO", nil, testSnapshot(), "")
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(decimal.RequireFromString("5.00")))
}

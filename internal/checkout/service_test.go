package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/coupon"
	"github.com/vitrine-shop/backend-loja/internal/events"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type couponStore struct {
	rules map[string]coupon.Rule
}

func (s *couponStore) GetByCode(_ context.Context, code string) (coupon.Rule, error) {
	rule, ok := s.rules[code]
	if !ok {
		return coupon.Rule{}, coupon.ErrNotFound
	}
	return rule, nil
}

func (s *couponStore) CountUsageByCustomer(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return 0, nil
}

type methodStore struct {
	methods []shipping.Method
}

func (s *methodStore) ListActiveMethods(context.Context) ([]shipping.Method, error) {
	return s.methods, nil
}

type memOrders struct {
	orders []Order
}

func (m *memOrders) InsertOrder(_ context.Context, order Order) error {
	m.orders = append(m.orders, order)
	return nil
}

type memSettle struct {
	rule     coupon.Rule
	usages   []coupon.Usage
	usedIncr int
}

func (m *memSettle) GetByCodeForUpdate(context.Context, string) (coupon.Rule, error) {
	return m.rule, nil
}
func (m *memSettle) HasUsageForOrder(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (m *memSettle) CountUsageByCustomer(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return 0, nil
}
func (m *memSettle) InsertUsage(_ context.Context, usage coupon.Usage) error {
	m.usages = append(m.usages, usage)
	return nil
}
func (m *memSettle) IncrementUsedCount(context.Context, uuid.UUID) error {
	m.usedIncr++
	return nil
}

type memEvents struct {
	events []events.Event
}

func (m *memEvents) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.events = append(m.events, ev)
	return ev, nil
}

type memTx struct {
	orders *memOrders
	settle *memSettle
	events *memEvents
}

func (t memTx) Orders() OrderStore               { return t.orders }
func (t memTx) CouponSettle() coupon.SettleStore { return t.settle }
func (t memTx) Events() events.Store             { return t.events }

type memRunner struct {
	tx memTx
}

func (r memRunner) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	return fn(r.tx)
}

type captureNotify struct {
	orders []Order
}

func (c *captureNotify) EnqueueOrderConfirmation(_ context.Context, order Order) error {
	c.orders = append(c.orders, order)
	return nil
}

func cartWorth(subtotal string) cart.Snapshot {
	return cart.Snapshot{Items: []cart.Item{
		{ProductID: uuid.New(), UnitPrice: dec(subtotal), Quantity: 1, WeightKg: dec("1")},
	}}
}

func pacMethod() shipping.Method {
	return shipping.Method{
		ID:          uuid.New(),
		CarrierName: "Correios",
		Name:        "PAC",
		BaseCost:    dec("12.00"),
		CostPerKg:   dec("3.00"),
		MinDays:     4,
		MaxDays:     8,
		Active:      true,
	}
}

func testService(rules map[string]coupon.Rule, methods []shipping.Method, tx memTx) *Service {
	couponSvc := &coupon.Service{Store: &couponStore{rules: rules}, DefaultPerCustomerLimit: 1}
	shippingSvc := &shipping.Service{Methods: &methodStore{methods: methods}, DefaultItemKg: dec("0.3")}
	return &Service{
		Coupons:  couponSvc,
		Shipping: shippingSvc,
		Runner:   memRunner{tx: tx},
		Bus:      func(tx Tx) *events.Bus { return &events.Bus{Store: tx.Events()} },
		TaxRate:  dec("0.10"),
	}
}

func emptyTx() memTx {
	return memTx{orders: &memOrders{}, settle: &memSettle{}, events: &memEvents{}}
}

func TestQuoteComposesDiscountAndShipping(t *testing.T) {
	rules := map[string]coupon.Rule{
		"DESCONTO10": {ID: uuid.New(), Code: "DESCONTO10", Kind: coupon.KindPercentage, Value: dec("10"), Active: true},
	}
	svc := testService(rules, []shipping.Method{pacMethod()}, emptyTx())

	result, err := svc.Quote(context.Background(), Input{
		Snapshot:       cartWorth("200.00"),
		CouponCode:     "DESCONTO10",
		DestinationCEP: "01310-100",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Coupon)
	require.Empty(t, result.CouponError)
	require.NotNil(t, result.Selected)
	// 12.00 + 3.00*1kg = 15.00
	require.True(t, result.Selected.Cost.Equal(dec("15.00")))
	require.True(t, result.Totals.Discount.Equal(dec("20.00")))
	require.True(t, result.Totals.Total.Equal(dec("213.00")))
}

func TestQuoteSurfacesCouponRejectionButStillComposes(t *testing.T) {
	expired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rules := map[string]coupon.Rule{
		"VELHO": {ID: uuid.New(), Code: "VELHO", Kind: coupon.KindFixed, Value: dec("10"), Active: true, ExpiresAt: &expired},
	}
	svc := testService(rules, []shipping.Method{pacMethod()}, emptyTx())

	result, err := svc.Quote(context.Background(), Input{
		Snapshot:       cartWorth("100.00"),
		CouponCode:     "VELHO",
		DestinationCEP: "01310-100",
	})
	require.NoError(t, err)
	require.Nil(t, result.Coupon)
	require.NotEmpty(t, result.CouponError)
	require.True(t, result.Totals.Discount.IsZero())
	// 100 + 10 tax + 15 shipping
	require.True(t, result.Totals.Total.Equal(dec("125.00")))
}

func TestQuoteSurfacesNoCoverageButStillComposes(t *testing.T) {
	spOnly := pacMethod()
	spOnly.RegionCodes = []string{"SP"}
	svc := testService(nil, []shipping.Method{spOnly}, emptyTx())

	result, err := svc.Quote(context.Background(), Input{
		Snapshot:       cartWorth("100.00"),
		DestinationCEP: "69005-000", // AM
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ShippingError)
	require.Nil(t, result.Selected)
	require.True(t, result.Totals.Shipping.IsZero())
	require.True(t, result.Totals.Total.Equal(dec("110.00")))
}

func TestQuoteEmptyCart(t *testing.T) {
	svc := testService(nil, nil, emptyTx())
	_, err := svc.Quote(context.Background(), Input{})
	require.Error(t, err)
}

func TestFinalizeCommitsOrderSettlementAndEvents(t *testing.T) {
	couponID := uuid.New()
	limit := 100
	rules := map[string]coupon.Rule{
		"DESCONTO10": {ID: couponID, Code: "DESCONTO10", Kind: coupon.KindPercentage, Value: dec("10"), Active: true, UsageLimit: &limit},
	}
	tx := emptyTx()
	tx.settle.rule = rules["DESCONTO10"]
	svc := testService(rules, []shipping.Method{pacMethod()}, tx)
	notify := &captureNotify{}
	svc.Notify = notify
	customerID := uuid.New()

	order, err := svc.Finalize(context.Background(), Input{
		Snapshot:       cartWorth("200.00"),
		CouponCode:     "DESCONTO10",
		DestinationCEP: "01310-100",
		CustomerID:     &customerID,
	})
	require.NoError(t, err)
	require.True(t, order.Totals.Total.Equal(dec("213.00")))
	require.Equal(t, "DESCONTO10", order.CouponCode)

	require.Len(t, tx.orders.orders, 1)
	require.Len(t, tx.settle.usages, 1)
	require.Equal(t, order.ID, tx.settle.usages[0].OrderID)
	require.Equal(t, 1, tx.settle.usedIncr)

	topics := []string{tx.events.events[0].Topic, tx.events.events[1].Topic}
	require.Contains(t, topics, events.TopicOrderCreated)
	require.Contains(t, topics, events.TopicCouponSettled)

	require.Len(t, notify.orders, 1)
}

func TestFinalizeRejectsInvalidCoupon(t *testing.T) {
	svc := testService(map[string]coupon.Rule{}, []shipping.Method{pacMethod()}, emptyTx())

	_, err := svc.Finalize(context.Background(), Input{
		Snapshot:       cartWorth("100.00"),
		CouponCode:     "NADA",
		DestinationCEP: "01310-100",
	})
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestFinalizeRejectsUnknownShippingMethod(t *testing.T) {
	svc := testService(nil, []shipping.Method{pacMethod()}, emptyTx())
	bogus := uuid.New()

	_, err := svc.Finalize(context.Background(), Input{
		Snapshot:       cartWorth("100.00"),
		DestinationCEP: "01310-100",
		MethodID:       &bogus,
	})
	require.ErrorIs(t, err, ErrNoShippingSelected)
}

func TestFinalizeWithoutCoupon(t *testing.T) {
	tx := emptyTx()
	svc := testService(nil, []shipping.Method{pacMethod()}, tx)

	order, err := svc.Finalize(context.Background(), Input{
		Snapshot:       cartWorth("100.00"),
		DestinationCEP: "01310-100",
	})
	require.NoError(t, err)
	require.Empty(t, order.CouponCode)
	require.Empty(t, tx.settle.usages)
	require.Len(t, tx.events.events, 1)
	require.Equal(t, events.TopicOrderCreated, tx.events.events[0].Topic)
}

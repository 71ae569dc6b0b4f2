package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponEvaluationsTotal counts coupon evaluations by kind and result
	// ("applied" or the rejection reason).
	CouponEvaluationsTotal *prometheus.CounterVec
	// CouponSettlementsTotal counts settle attempts at order finalization.
	CouponSettlementsTotal *prometheus.CounterVec
	// ShippingQuotesTotal counts shipping quote outcomes.
	ShippingQuotesTotal *prometheus.CounterVec
	// ShippingLookupDegradedTotal counts postal lookups served from the
	// approximate fallback table instead of the live API.
	ShippingLookupDegradedTotal prometheus.Counter
	// CheckoutTotalsComposedTotal counts cart total compositions.
	CheckoutTotalsComposedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_evaluations_total",
			Help:      "Count of coupon evaluations by kind and result.",
		}, []string{"kind", "result"})
		CouponSettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_settlements_total",
			Help:      "Count of coupon usage settlements by result.",
		}, []string{"result"})
		ShippingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quotes_total",
			Help:      "Count of shipping quote calculations by result.",
		}, []string{"result"})
		ShippingLookupDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_lookup_degraded_total",
			Help:      "Number of destination lookups that fell back to the approximate region table.",
		})
		CheckoutTotalsComposedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_totals_composed_total",
			Help:      "Count of cart total compositions by discount type.",
		}, []string{"discount"})

		mustRegisterCollector(reg, CouponEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, CouponSettlementsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponSettlementsTotal = v
			}
		})
		mustRegisterCollector(reg, ShippingQuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingQuotesTotal = v
			}
		})
		mustRegisterCollector(reg, ShippingLookupDegradedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ShippingLookupDegradedTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotalsComposedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotalsComposedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

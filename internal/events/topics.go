package events

// Topics emitted by the checkout flow.
const (
	// TopicOrderCreated fires once per finalized order.
	TopicOrderCreated = "order.created"
	// TopicCouponSettled fires when a coupon redemption commits.
	TopicCouponSettled = "coupon.settled"
)

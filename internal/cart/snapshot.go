package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEmpty indicates the snapshot carries no items.
var ErrEmpty = errors.New("cart is empty")

// ErrMalformed is returned when a snapshot violates basic invariants. This is
// a hard error, not a business-rule rejection: upstream persistence should
// never hand us negative prices or zero quantities.
var ErrMalformed = errors.New("cart snapshot malformed")

// Item is a read-only view of a single cart line.
type Item struct {
	ProductID  uuid.UUID       `json:"productId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	WeightKg   decimal.Decimal `json:"weightKg"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	BrandID    *uuid.UUID      `json:"brandId,omitempty"`
}

// LineSubtotal returns unit price times quantity for the item.
func (it Item) LineSubtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Snapshot is an ephemeral view of cart contents handed to the calculators.
// It holds no identity and no session state; callers rebuild it per request.
type Snapshot struct {
	Items []Item `json:"items"`
}

// Validate rejects structurally invalid snapshots.
func (s Snapshot) Validate() error {
	for i, it := range s.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("item %d: quantity %d: %w", i, it.Quantity, ErrMalformed)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d: negative unit price: %w", i, ErrMalformed)
		}
		if it.WeightKg.IsNegative() {
			return fmt.Errorf("item %d: negative weight: %w", i, ErrMalformed)
		}
	}
	return nil
}

// Empty reports whether the snapshot has no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Subtotal recomputes the sum of line subtotals. It is derived on every call
// rather than cached so the value can never go stale across mutations.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.LineSubtotal())
	}
	return total
}

// ChargeableWeightKg aggregates item weight times quantity. Items without a
// tracked weight fall back to the configured default instead of silently
// weighing zero.
func (s Snapshot) ChargeableWeightKg(defaultItemKg decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		w := it.WeightKg
		if w.IsZero() {
			w = defaultItemKg
		}
		total = total.Add(w.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

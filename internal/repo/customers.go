package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerHistoryRepo serves the customer lookups coupon evaluation needs.
type CustomerHistoryRepo struct {
	DB DB
}

// PastOrderCount counts finalized orders for the customer.
func (r CustomerHistoryRepo) PastOrderCount(ctx context.Context, customerID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`,
		customerID,
	).Scan(&count)
	return count, err
}

// EmailByID returns the customer's address, empty when unknown.
func (r CustomerHistoryRepo) EmailByID(ctx context.Context, customerID uuid.UUID) (string, error) {
	var email string
	err := r.DB.QueryRow(ctx,
		`SELECT email FROM customers WHERE id = $1`,
		customerID,
	).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}

// CustomerGroup returns the customer's segment, or an empty string for
// unknown customers so guests and stale sessions evaluate as ungrouped.
func (r CustomerHistoryRepo) CustomerGroup(ctx context.Context, customerID uuid.UUID) (string, error) {
	var group *string
	err := r.DB.QueryRow(ctx,
		`SELECT customer_group FROM customers WHERE id = $1`,
		customerID,
	).Scan(&group)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if group == nil {
		return "", nil
	}
	return *group, nil
}

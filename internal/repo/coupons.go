package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vitrine-shop/backend-loja/internal/coupon"
)

const couponColumns = `id, code, kind, value, minimum_amount, maximum_discount,
	usage_limit, used_count, per_customer_limit, starts_at, expires_at,
	is_active, first_purchase_only, combinable,
	product_ids::text[], category_ids::text[], brand_ids::text[], customer_groups`

// CouponRepo implements the read and admin surfaces over the coupons table.
type CouponRepo struct {
	DB DB
}

func scanCoupon(row pgx.Row) (coupon.Rule, error) {
	var (
		rule        coupon.Rule
		kind        string
		productIDs  []string
		categoryIDs []string
		brandIDs    []string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &kind, &rule.Value,
		&rule.MinimumAmount, &rule.MaximumDiscount,
		&rule.UsageLimit, &rule.UsedCount, &rule.PerCustomerLimit,
		&rule.StartsAt, &rule.ExpiresAt,
		&rule.Active, &rule.FirstPurchaseOnly, &rule.Combinable,
		&productIDs, &categoryIDs, &brandIDs, &rule.CustomerGroups,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Rule{}, coupon.ErrNotFound
		}
		return coupon.Rule{}, err
	}
	rule.Kind = coupon.Kind(kind)
	if rule.ProductIDs, err = parseUUIDs(productIDs); err != nil {
		return coupon.Rule{}, err
	}
	if rule.CategoryIDs, err = parseUUIDs(categoryIDs); err != nil {
		return coupon.Rule{}, err
	}
	if rule.BrandIDs, err = parseUUIDs(brandIDs); err != nil {
		return coupon.Rule{}, err
	}
	return rule, nil
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("parse uuid %q: %w", v, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// GetByCode loads a coupon by its normalized code.
func (r CouponRepo) GetByCode(ctx context.Context, code string) (coupon.Rule, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	return scanCoupon(row)
}

// CountUsageByCustomer counts committed redemptions for one customer.
func (r CouponRepo) CountUsageByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND customer_id = $2`,
		couponID, customerID,
	).Scan(&count)
	return count, err
}

// Insert creates a new coupon record.
func (r CouponRepo) Insert(ctx context.Context, rule coupon.Rule) (coupon.Rule, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO coupons (
			code, kind, value, minimum_amount, maximum_discount,
			usage_limit, per_customer_limit, starts_at, expires_at,
			is_active, first_purchase_only, combinable,
			product_ids, category_ids, brand_ids, customer_groups
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13::uuid[], $14::uuid[], $15::uuid[], $16
		)
		RETURNING `+couponColumns,
		rule.Code, string(rule.Kind), rule.Value, rule.MinimumAmount, rule.MaximumDiscount,
		rule.UsageLimit, rule.PerCustomerLimit, rule.StartsAt, rule.ExpiresAt,
		rule.Active, rule.FirstPurchaseOnly, rule.Combinable,
		uuidStrings(rule.ProductIDs), uuidStrings(rule.CategoryIDs), uuidStrings(rule.BrandIDs),
		rule.CustomerGroups,
	)
	created, err := scanCoupon(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return coupon.Rule{}, coupon.ErrCodeTaken
		}
		return coupon.Rule{}, err
	}
	return created, nil
}

// Update mutates an existing coupon identified by code.
func (r CouponRepo) Update(ctx context.Context, rule coupon.Rule) (coupon.Rule, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE coupons SET
			kind = $2, value = $3, minimum_amount = $4, maximum_discount = $5,
			usage_limit = $6, per_customer_limit = $7, starts_at = $8,
			expires_at = $9, is_active = $10, first_purchase_only = $11,
			combinable = $12, product_ids = $13::uuid[],
			category_ids = $14::uuid[], brand_ids = $15::uuid[],
			customer_groups = $16, updated_at = now()
		WHERE code = $1
		RETURNING `+couponColumns,
		rule.Code, string(rule.Kind), rule.Value, rule.MinimumAmount, rule.MaximumDiscount,
		rule.UsageLimit, rule.PerCustomerLimit, rule.StartsAt, rule.ExpiresAt,
		rule.Active, rule.FirstPurchaseOnly, rule.Combinable,
		uuidStrings(rule.ProductIDs), uuidStrings(rule.CategoryIDs), uuidStrings(rule.BrandIDs),
		rule.CustomerGroups,
	)
	return scanCoupon(row)
}

// SetActive toggles a coupon without touching its usage history.
func (r CouponRepo) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE coupons SET is_active = $2, updated_at = now() WHERE code = $1`,
		code, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// List pages coupon records ordered by creation time.
func (r CouponRepo) List(ctx context.Context, limit, offset int) ([]coupon.Rule, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var rules []coupon.Rule
	for rows.Next() {
		rule, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		rules = append(rules, rule)
	}
	return rules, total, rows.Err()
}

// CouponSettleRepo is the transactional settlement surface. Bind it to the
// checkout transaction so the locked recheck and usage insert commit together.
type CouponSettleRepo struct {
	Tx DB
}

// GetByCodeForUpdate locks the coupon row for the duration of the transaction.
func (r CouponSettleRepo) GetByCodeForUpdate(ctx context.Context, code string) (coupon.Rule, error) {
	row := r.Tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
	return scanCoupon(row)
}

// HasUsageForOrder reports whether this order already settled the coupon.
func (r CouponSettleRepo) HasUsageForOrder(ctx context.Context, couponID, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.Tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2)`,
		couponID, orderID,
	).Scan(&exists)
	return exists, err
}

// CountUsageByCustomer counts committed redemptions inside the transaction.
func (r CouponSettleRepo) CountUsageByCustomer(ctx context.Context, couponID, customerID uuid.UUID) (int, error) {
	return CouponRepo{DB: r.Tx}.CountUsageByCustomer(ctx, couponID, customerID)
}

// InsertUsage records one committed redemption.
func (r CouponSettleRepo) InsertUsage(ctx context.Context, usage coupon.Usage) error {
	_, err := r.Tx.Exec(ctx, `
		INSERT INTO coupon_usages (coupon_id, customer_id, order_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5)`,
		usage.CouponID, usage.CustomerID, usage.OrderID, usage.DiscountAmount, usage.UsedAt,
	)
	return err
}

// IncrementUsedCount bumps the denormalized counter on the locked row.
func (r CouponSettleRepo) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	_, err := r.Tx.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1`,
		couponID,
	)
	return err
}

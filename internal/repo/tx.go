package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitrine-shop/backend-loja/internal/checkout"
	"github.com/vitrine-shop/backend-loja/internal/coupon"
	"github.com/vitrine-shop/backend-loja/internal/events"
)

// PgxTxRunner implements checkout.TxRunner on a pgx pool.
type PgxTxRunner struct {
	Pool *pgxpool.Pool
}

type checkoutTx struct {
	tx pgx.Tx
}

func (t checkoutTx) Orders() checkout.OrderStore         { return OrderRepo{DB: t.tx} }
func (t checkoutTx) CouponSettle() coupon.SettleStore    { return CouponSettleRepo{Tx: t.tx} }
func (t checkoutTx) Events() events.Store                { return EventRepo{DB: t.tx} }

// WithinTx runs fn inside a single transaction, committing on success.
func (r PgxTxRunner) WithinTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(checkoutTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

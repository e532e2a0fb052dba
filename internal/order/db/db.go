package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
	ticketsdb "ms-boxoffice/internal/tickets/db"

	"github.com/uptrace/bun"
)

// Enqueue runs inside an order transaction to record follow-up jobs.
type Enqueue func(ctx context.Context, tx bun.Tx) error

type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

// ---------------- CUSTOMERS ----------------

// UpsertCustomer returns the customer with c.Email, inserting c when there is
// none. Existing names are kept.
func (d *DB) UpsertCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	_, err := d.Bun.NewInsert().
		Model(c).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}

	var stored models.Customer
	err = d.Bun.NewSelect().
		Model(&stored).
		Where("email = ?", c.Email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}
	return &stored, nil
}

// ---------------- PROMOS ----------------

// ClaimPromo moves a single-use promo from active to claimed. Only one
// caller can win; the rest get false.
func (d *DB) ClaimPromo(ctx context.Context, id string, at time.Time) (bool, error) {
	return d.swapPromo(ctx, id, models.PromoActive, models.PromoClaimed, at)
}

// ReleasePromo undoes a claim whose charge did not go through.
func (d *DB) ReleasePromo(ctx context.Context, id string, at time.Time) error {
	_, err := d.swapPromo(ctx, id, models.PromoClaimed, models.PromoActive, at)
	return err
}

func (d *DB) swapPromo(ctx context.Context, id string, from, to models.PromoStatus, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Promo)(nil)).
		Set("status = ?", to).
		Set("updated = ?", at).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("set promo %s %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set promo %s %s: %w", id, to, err)
	}
	return n == 1, nil
}

// ---------------- ORDERS ----------------

// SaveOrder writes a paid order with its items and sale transaction, plus
// whatever enqueue records, in one transaction. Saving an order id that
// already exists is a no-op, so the write can be retried after an
// ambiguous failure.
func (d *DB) SaveOrder(ctx context.Context, order *models.Order, sale *models.Transaction, enqueue Enqueue) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(order).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		if len(order.Items) > 0 {
			if _, err := tx.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		if _, err := tx.NewInsert().Model(sale).Exec(ctx); err != nil {
			return fmt.Errorf("insert sale transaction: %w", err)
		}

		if enqueue != nil {
			return enqueue(ctx, tx)
		}
		return nil
	})
}

// GetOrder returns an order with its items, or NOT_FOUND.
func (d *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Relation("Items").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &order, nil
}

// SaleTransaction returns the sale recorded for an order, or NOT_FOUND.
func (d *DB) SaleTransaction(ctx context.Context, orderID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := d.Bun.NewSelect().
		Model(&txn).
		Where("order_id = ?", orderID).
		Where("type = ?", models.TransactionSale).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "no sale transaction for order %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("select sale transaction: %w", err)
	}
	return &txn, nil
}

// RecordReversal stores a refund or void, cancels the order and archives its
// active guests, all in one transaction.
func (d *DB) RecordReversal(ctx context.Context, orderID string, reversal *models.Transaction, updatedBy string, at time.Time) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(reversal).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert %s transaction: %w", reversal.Type, err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.OrderCanceled).
			Set("updated = ?", at).
			Where("id = ?", orderID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		_, err = ticketsdb.New(tx).ArchiveOrderGuests(ctx, orderID, updatedBy, at)
		return err
	})
}

// SaveTransfer creates the transferee's child order, marks the parent
// transferred and archives the moved guests in one transaction. It fails
// NOT_PERMITTED when the parent was canceled or a guest stopped being
// active since they were read.
func (d *DB) SaveTransfer(ctx context.Context, child *models.Order, guestIDs []string, updatedBy string, enqueue Enqueue) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.OrderTransferred).
			Set("updated = ?", child.Created).
			Where("id = ?", child.ParentOrderID).
			Where("status != ?", models.OrderCanceled).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark order transferred: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return apperr.New(apperr.NotPermitted, "order was canceled")
		}

		if _, err := tx.NewInsert().Model(child).Exec(ctx); err != nil {
			return fmt.Errorf("insert transfer order: %w", err)
		}

		n, err := ticketsdb.New(tx).ArchiveGuests(ctx, guestIDs, updatedBy, child.Created)
		if err != nil {
			return err
		}
		if int(n) != len(guestIDs) {
			return apperr.New(apperr.NotPermitted, "some guests are no longer active")
		}

		if enqueue != nil {
			return enqueue(ctx, tx)
		}
		return nil
	})
}

// Package inventory archives products that have sold out and promotes the
// next pricing tier in their place.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"

	"github.com/uptrace/bun"
)

type RollOver struct {
	Bun *bun.DB
	Log *logger.Logger
	Now func() time.Time
}

func New(db *bun.DB, log *logger.Logger) *RollOver {
	return &RollOver{
		Bun: db,
		Log: log,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// Outcome describes what happened to one product.
type Outcome struct {
	ProductID string
	Sold      int
	Archived  bool
	Successor string
}

// Run checks each product and rolls over the ones at or past their
// maxQuantity. Products without a limit, or no longer active, are skipped.
// Every product is handled in its own transaction so one failure does not
// undo the others; the first error is returned after all were tried.
func (r *RollOver) Run(ctx context.Context, productIDs []string) ([]Outcome, error) {
	var (
		outcomes []Outcome
		firstErr error
	)
	for _, id := range productIDs {
		out, err := r.rollOne(ctx, id)
		if err != nil {
			r.Log.Error("INVENTORY", fmt.Sprintf("Roll-over of product %s failed: %v", id, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if out != nil {
			outcomes = append(outcomes, *out)
		}
	}
	return outcomes, firstErr
}

func (r *RollOver) rollOne(ctx context.Context, productID string) (*Outcome, error) {
	var out *Outcome
	err := r.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var product models.Product
		err := tx.NewSelect().Model(&product).Where("id = ?", productID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select product: %w", err)
		}
		if product.MaxQuantity == nil || product.Status != models.ProductActive {
			return nil
		}

		sold, err := soldQuantity(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		out = &Outcome{ProductID: product.ID, Sold: sold}
		if sold < *product.MaxQuantity {
			return nil
		}

		now := r.Now()
		if err := setStatus(ctx, tx, product.ID, models.ProductActive, models.ProductArchived, now); err != nil {
			return err
		}
		out.Archived = true

		next := product.Meta.NextTierProductID
		if next == "" {
			return nil
		}
		if err := setStatus(ctx, tx, next, models.ProductInactive, models.ProductActive, now); err != nil {
			return err
		}
		if product.EventID != "" {
			_, err := tx.NewUpdate().
				Model((*models.Event)(nil)).
				Set("current_ticket_product_id = ?", next).
				Where("id = ?", product.EventID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("point event at successor: %w", err)
			}
		}
		out.Successor = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil && out.Archived {
		msg := fmt.Sprintf("Product %s sold out at %d", out.ProductID, out.Sold)
		if out.Successor != "" {
			msg += fmt.Sprintf(", now selling %s", out.Successor)
		}
		r.Log.Info("INVENTORY", msg)
	}
	return out, nil
}

// soldQuantity sums the units of a product on orders that were not
// canceled.
func soldQuantity(ctx context.Context, tx bun.Tx, productID string) (int, error) {
	var sold int
	err := tx.NewSelect().
		TableExpr("order_items AS oi").
		Join("JOIN orders AS o ON o.id = oi.order_id").
		ColumnExpr("COALESCE(SUM(oi.quantity), 0)").
		Where("oi.product_id = ?", productID).
		Where("o.status != ?", models.OrderCanceled).
		Scan(ctx, &sold)
	if err != nil {
		return 0, fmt.Errorf("sum sold quantity: %w", err)
	}
	return sold, nil
}

func setStatus(ctx context.Context, tx bun.Tx, id string, from, to models.ProductStatus, now time.Time) error {
	_, err := tx.NewUpdate().
		Model((*models.Product)(nil)).
		Set("status = ?", to).
		Set("updated = ?", now).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set product %s %s: %w", id, to, err)
	}
	return nil
}

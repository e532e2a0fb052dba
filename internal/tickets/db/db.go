package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"

	"github.com/uptrace/bun"
)

// DB is the guest store. Bun may be a *bun.DB or a bun.Tx so other stores can
// archive guests inside their own transaction.
type DB struct {
	Bun bun.IDB
}

func New(db bun.IDB) *DB {
	return &DB{Bun: db}
}

// InsertGuests writes guests and skips ids that already exist, so replayed
// fan-out jobs converge. Guests of an order that is already canceled are
// written archived. The order rows are locked before their status is read, so
// a refund committing concurrently either archives these guests itself or is
// seen here.
func (d *DB) InsertGuests(ctx context.Context, guests []models.Guest) error {
	if len(guests) == 0 {
		return nil
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		canceled, err := lockCanceledOrders(ctx, tx, guests)
		if err != nil {
			return err
		}
		for i := range guests {
			if canceled[guests[i].OrderID] {
				guests[i].Status = models.GuestArchived
			}
		}
		_, err = tx.NewInsert().
			Model(&guests).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert guests: %w", err)
		}
		return nil
	})
}

// lockCanceledOrders row-locks the orders the guests belong to and reports
// which of them are canceled.
func lockCanceledOrders(ctx context.Context, tx bun.Tx, guests []models.Guest) (map[string]bool, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range guests {
		if g.OrderID != "" && !seen[g.OrderID] {
			seen[g.OrderID] = true
			ids = append(ids, g.OrderID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// no-op write; takes the same lock RecordReversal takes when it cancels
	_, err := tx.NewUpdate().
		Model((*models.Order)(nil)).
		Set("updated = updated").
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock orders: %w", err)
	}

	var canceled []string
	err = tx.NewSelect().
		Model((*models.Order)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Where("status = ?", models.OrderCanceled).
		Scan(ctx, &canceled)
	if err != nil {
		return nil, fmt.Errorf("read order status: %w", err)
	}
	out := make(map[string]bool, len(canceled))
	for _, id := range canceled {
		out[id] = true
	}
	return out, nil
}

func (d *DB) GuestByID(ctx context.Context, id string) (*models.Guest, error) {
	var guest models.Guest
	err := d.Bun.NewSelect().
		Model(&guest).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "guest %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select guest: %w", err)
	}
	return &guest, nil
}

// GuestBySeed resolves a ticket credential. It returns nil, nil when no guest
// holds the seed.
func (d *DB) GuestBySeed(ctx context.Context, seed string) (*models.Guest, error) {
	var guest models.Guest
	err := d.Bun.NewSelect().
		Model(&guest).
		Where("ticket_seed = ?", seed).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select guest by seed: %w", err)
	}
	return &guest, nil
}

func (d *DB) EventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select event: %w", err)
	}
	return &event, nil
}

// GuestsByOrder lists the guests of an order, optionally restricted to ids.
func (d *DB) GuestsByOrder(ctx context.Context, orderID string, ids ...string) ([]models.Guest, error) {
	var guests []models.Guest
	q := d.Bun.NewSelect().
		Model(&guests).
		Where("order_id = ?", orderID).
		Order("created ASC", "id ASC")
	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select guests for order %s: %w", orderID, err)
	}
	return guests, nil
}

// MarkCheckedIn moves a guest from active to checked_in. It only succeeds
// while the stored status is still active and reports whether this call won.
func (d *DB) MarkCheckedIn(ctx context.Context, id, scannedBy string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Guest)(nil)).
		Set("status = ?", models.GuestCheckedIn).
		Set("check_in_time = ?", at).
		Set("updated_by = ?", scannedBy).
		Set("updated = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.GuestActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("check in guest %s: %w", id, err)
	}
	return affected(res) == 1, nil
}

// ArchiveGuests archives the named active guests and returns how many moved.
// Checked-in guests stay checked in.
func (d *DB) ArchiveGuests(ctx context.Context, ids []string, updatedBy string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := d.archive().
		Set("updated_by = ?", updatedBy).
		Set("updated = ?", at).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("archive guests: %w", err)
	}
	return affected(res), nil
}

// ArchiveOrderGuests archives every active guest of an order.
func (d *DB) ArchiveOrderGuests(ctx context.Context, orderID, updatedBy string, at time.Time) (int64, error) {
	res, err := d.archive().
		Set("updated_by = ?", updatedBy).
		Set("updated = ?", at).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("archive guests of order %s: %w", orderID, err)
	}
	return affected(res), nil
}

func (d *DB) archive() *bun.UpdateQuery {
	return d.Bun.NewUpdate().
		Model((*models.Guest)(nil)).
		Set("status = ?", models.GuestArchived).
		Where("status = ?", models.GuestActive)
}

// UpdateGuest writes the given columns of guest. The write is conditioned on
// the guest still being active.
func (d *DB) UpdateGuest(ctx context.Context, guest *models.Guest, columns ...string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(guest).
		Column(append(columns, "updated_by", "updated")...).
		WherePK().
		Where("status = ?", models.GuestActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update guest %s: %w", guest.ID, err)
	}
	return affected(res) == 1, nil
}

// MinimumTier returns the lowest admission tier among the ticket products the
// guest's order bought for the guest's event. Guests do not record which cart
// line they came from, so on an order mixing tiers every guest gets the floor
// of the cheapest line. Transfer orders carry no items,
// so their parents are searched too. Guests without an order have no floor
// and get TierGeneral.
func (d *DB) MinimumTier(ctx context.Context, guest *models.Guest) (models.AdmissionTier, error) {
	if guest.OrderID == "" {
		return models.TierGeneral, nil
	}

	orderIDs, err := d.orderLineage(ctx, guest.OrderID)
	if err != nil {
		return "", err
	}

	var tiers []string
	err = d.Bun.NewSelect().
		TableExpr("order_items AS oi").
		Join("JOIN products AS p ON oi.product_id = p.id").
		ColumnExpr("p.admission_tier").
		Where("oi.order_id IN (?)", bun.In(orderIDs)).
		Where("p.event_id = ?", guest.EventID).
		Where("p.admission_tier IS NOT NULL").
		Scan(ctx, &tiers)
	if err != nil {
		return "", fmt.Errorf("select minimum tier: %w", err)
	}

	var floor models.AdmissionTier
	for _, t := range tiers {
		tier := models.AdmissionTier(t)
		if tier.Valid() && (floor == "" || tier.Rank() < floor.Rank()) {
			floor = tier
		}
	}
	if floor == "" {
		return models.TierGeneral, nil
	}
	return floor, nil
}

// maxLineage bounds the walk up parent_order_id.
const maxLineage = 16

// orderLineage returns orderID followed by its ancestors through
// parent_order_id.
func (d *DB) orderLineage(ctx context.Context, orderID string) ([]string, error) {
	ids := []string{orderID}
	for len(ids) < maxLineage {
		var parent sql.NullString
		err := d.Bun.NewSelect().
			Model((*models.Order)(nil)).
			Column("parent_order_id").
			Where("id = ?", ids[len(ids)-1]).
			Limit(1).
			Scan(ctx, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("select parent order: %w", err)
		}
		if !parent.Valid || parent.String == "" {
			break
		}
		ids = append(ids, parent.String)
	}
	return ids, nil
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

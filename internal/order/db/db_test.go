package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/database/testdb"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/order/db"
	ticketsdb "ms-boxoffice/internal/tickets/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*db.DB, *bun.DB) {
	bunDB := testdb.New(t)
	return db.New(bunDB), bunDB
}

func paidOrder(id string) (*models.Order, *models.Transaction) {
	order := &models.Order{
		ID: id, CustomerID: "c1", Amount: decimal.NewFromInt(100), Status: models.OrderComplete, Created: now, Updated: now,
		Items: []models.OrderItem{{OrderID: id, ProductID: "ga", Quantity: 2, UnitPrice: decimal.NewFromInt(50)}},
	}
	sale := &models.Transaction{
		ID: "tx-" + id, OrderID: id, Processor: "stripe", ProcessorTransactionID: "pi_" + id,
		ProcessorCreatedAt: now, Type: models.TransactionSale, Amount: decimal.NewFromInt(100), Created: now,
	}
	return order, sale
}

func insertGuests(t *testing.T, bunDB *bun.DB, orderID string, statuses ...models.GuestStatus) []string {
	t.Helper()
	var ids []string
	guests := make([]models.Guest, 0, len(statuses))
	for i, st := range statuses {
		id := orderID + "-g" + string(rune('0'+i))
		ids = append(ids, id)
		guests = append(guests, models.Guest{
			ID: id, FirstName: "Ada", LastName: "Lovelace", AdmissionTier: models.TierGeneral, OrderID: orderID,
			EventID: "ev1", CreatedReason: models.ReasonPurchase, TicketSeed: "seed-" + id, Status: st,
			Meta: map[string]any{}, Created: now, Updated: now,
		})
	}
	_, err := bunDB.NewInsert().Model(&guests).Exec(context.Background())
	require.NoError(t, err)
	return ids
}

func TestUpsertCustomerKeepsFirstRecord(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	first, err := store.UpsertCustomer(ctx, &models.Customer{ID: "c1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Created: now, Updated: now})
	require.NoError(t, err)
	again, err := store.UpsertCustomer(ctx, &models.Customer{ID: "c2", FirstName: "Augusta", LastName: "King", Email: "ada@example.com", Created: now, Updated: now})
	require.NoError(t, err)

	assert.Equal(t, "c1", first.ID)
	assert.Equal(t, "c1", again.ID)
	assert.Equal(t, "Ada", again.FirstName)
}

func TestClaimPromoOnce(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()
	promo := models.Promo{ID: "p1", Type: models.PromoSingleUse, ProductID: "ga", ProductQuantity: 2, Status: models.PromoActive, Created: now, Updated: now}
	_, err := bunDB.NewInsert().Model(&promo).Exec(ctx)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ClaimPromo(ctx, "p1", now)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	require.NoError(t, store.ReleasePromo(ctx, "p1", now))
	ok, err := store.ClaimPromo(ctx, "p1", now)
	require.NoError(t, err)
	assert.True(t, ok, "a released promo can be claimed again")
}

func TestSaveOrderIsIdempotent(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	enqueued := 0
	enqueue := func(ctx context.Context, tx bun.Tx) error {
		enqueued++
		return nil
	}

	order, sale := paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, enqueue))
	order, sale = paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, enqueue))

	assert.Equal(t, 1, enqueued)
	n, err := bunDB.NewSelect().Model((*models.OrderItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
}

func TestSaveOrderRollsBackWhenEnqueueFails(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	err := store.SaveOrder(ctx, order, sale, func(context.Context, bun.Tx) error { return errors.New("outbox down") })
	require.Error(t, err)

	_, err = store.GetOrder(ctx, "o1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = store.SaleTransaction(ctx, "o1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestRecordReversal(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, nil))
	ids := insertGuests(t, bunDB, "o1", models.GuestActive, models.GuestCheckedIn)

	refund := &models.Transaction{
		ID: "tx-refund", OrderID: "o1", Processor: "stripe", ProcessorTransactionID: "re_1", ProcessorCreatedAt: now,
		Type: models.TransactionRefund, Amount: decimal.NewFromInt(100), ParentTransactionID: sale.ID, Created: now,
	}
	require.NoError(t, store.RecordReversal(ctx, "o1", refund, "admin", now))

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCanceled, got.Status)

	var guests []models.Guest
	require.NoError(t, bunDB.NewSelect().Model(&guests).Where("id IN (?)", bun.In(ids)).Order("id").Scan(ctx))
	assert.Equal(t, models.GuestArchived, guests[0].Status)
	assert.Equal(t, models.GuestCheckedIn, guests[1].Status)

	saleTx, err := store.SaleTransaction(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "tx-o1", saleTx.ID)
}

func TestRefundBeforeFanOutLeavesGuestsArchived(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, nil))
	refund := &models.Transaction{
		ID: "tx-refund", OrderID: "o1", Processor: "stripe", ProcessorTransactionID: "re_1", ProcessorCreatedAt: now,
		Type: models.TransactionRefund, Amount: decimal.NewFromInt(100), ParentTransactionID: sale.ID, Created: now,
	}
	require.NoError(t, store.RecordReversal(ctx, "o1", refund, "admin", now))

	// the fan-out job for o1 runs only after the refund committed
	guests := ticketsdb.New(bunDB)
	late := []models.Guest{{
		ID: "o1-g0", FirstName: "Ada", LastName: "Lovelace", AdmissionTier: models.TierGeneral, OrderID: "o1",
		EventID: "ev1", CreatedReason: models.ReasonPurchase, TicketSeed: "seed-o1-g0", Status: models.GuestActive,
		Meta: map[string]any{}, Created: now, Updated: now,
	}}
	require.NoError(t, guests.InsertGuests(ctx, late))

	got, err := guests.GuestByID(ctx, "o1-g0")
	require.NoError(t, err)
	assert.Equal(t, models.GuestArchived, got.Status)

	won, err := guests.MarkCheckedIn(ctx, "o1-g0", "door-1", now)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestSaveTransferMovesSelectedGuests(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, nil))
	ids := insertGuests(t, bunDB, "o1", models.GuestActive, models.GuestActive, models.GuestActive)

	child := &models.Order{ID: "o2", CustomerID: "c2", Amount: decimal.Zero, ParentOrderID: "o1", Status: models.OrderComplete, Created: now, Updated: now}
	enqueued := false
	require.NoError(t, store.SaveTransfer(ctx, child, ids[:1], "admin", func(context.Context, bun.Tx) error {
		enqueued = true
		return nil
	}))
	assert.True(t, enqueued)

	parent, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderTransferred, parent.Status)

	got, err := store.GetOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ParentOrderID)
	assert.True(t, got.Amount.IsZero())

	var archived int
	archived, err = bunDB.NewSelect().Model((*models.Guest)(nil)).Where("order_id = ? AND status = ?", "o1", models.GuestArchived).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, archived)
}

func TestSaveTransferRejectsInactiveGuests(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	require.NoError(t, store.SaveOrder(ctx, order, sale, nil))
	ids := insertGuests(t, bunDB, "o1", models.GuestActive, models.GuestCheckedIn)

	child := &models.Order{ID: "o2", CustomerID: "c2", Amount: decimal.Zero, ParentOrderID: "o1", Status: models.OrderComplete, Created: now, Updated: now}
	err := store.SaveTransfer(ctx, child, ids, "admin", nil)
	assert.True(t, apperr.Is(err, apperr.NotPermitted))

	_, err = store.GetOrder(ctx, "o2")
	assert.True(t, apperr.Is(err, apperr.NotFound), "transfer must roll back")
	parent, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderComplete, parent.Status)
}

func TestSaveTransferRejectsCanceledOrder(t *testing.T) {
	store, bunDB := setup(t)
	ctx := context.Background()

	order, sale := paidOrder("o1")
	order.Status = models.OrderCanceled
	require.NoError(t, store.SaveOrder(ctx, order, sale, nil))
	ids := insertGuests(t, bunDB, "o1", models.GuestActive)

	child := &models.Order{ID: "o2", CustomerID: "c2", Amount: decimal.Zero, ParentOrderID: "o1", Status: models.OrderComplete, Created: now, Updated: now}
	err := store.SaveTransfer(ctx, child, ids, "admin", nil)

	assert.True(t, apperr.Is(err, apperr.NotPermitted))
}

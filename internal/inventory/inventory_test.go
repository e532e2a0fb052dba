package inventory

import (
	"context"
	"testing"
	"time"

	"ms-boxoffice/internal/database/testdb"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

func seed(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	event := models.Event{ID: "ev1", Name: "Fall Show", Date: now.Add(30 * 24 * time.Hour), Status: models.EventActive, CurrentTicketProductID: "early", Created: now}
	products := []models.Product{
		{ID: "early", Type: models.ProductTicket, Price: decimal.NewFromInt(40), MaxQuantity: intPtr(3), EventID: "ev1", AdmissionTier: models.TierGeneral, Status: models.ProductActive, Meta: models.ProductMeta{NextTierProductID: "regular"}, Created: now, Updated: now},
		{ID: "regular", Type: models.ProductTicket, Price: decimal.NewFromInt(50), EventID: "ev1", AdmissionTier: models.TierGeneral, Status: models.ProductInactive, Created: now, Updated: now},
		{ID: "shirt", Type: models.ProductUpgrade, Price: decimal.NewFromInt(20), MaxQuantity: intPtr(1), Status: models.ProductActive, Created: now, Updated: now},
		{ID: "parking", Type: models.ProductAccommodation, Price: decimal.NewFromInt(10), Status: models.ProductActive, Created: now, Updated: now},
	}
	_, err := db.NewInsert().Model(&event).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&products).Exec(ctx)
	require.NoError(t, err)
}

func sell(t *testing.T, db *bun.DB, orderID string, status models.OrderStatus, productID string, qty int) {
	t.Helper()
	ctx := context.Background()
	order := models.Order{ID: orderID, CustomerID: "c1", Amount: decimal.NewFromInt(1), Status: status, Created: now, Updated: now}
	item := models.OrderItem{OrderID: orderID, ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(1)}
	_, err := db.NewInsert().Model(&order).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&item).Exec(ctx)
	require.NoError(t, err)
}

func product(t *testing.T, db *bun.DB, id string) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.NewSelect().Model(&p).Where("id = ?", id).Scan(context.Background()))
	return p
}

func newRollOver(db *bun.DB) *RollOver {
	r := New(db, logger.Discard())
	r.Now = func() time.Time { return now }
	return r
}

func TestRollOverPromotesNextTier(t *testing.T) {
	db := testdb.New(t)
	seed(t, db)
	sell(t, db, "o1", models.OrderComplete, "early", 2)
	sell(t, db, "o2", models.OrderTransferred, "early", 1)

	outcomes, err := newRollOver(db).Run(context.Background(), []string{"early"})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, Outcome{ProductID: "early", Sold: 3, Archived: true, Successor: "regular"}, outcomes[0])
	assert.Equal(t, models.ProductArchived, product(t, db, "early").Status)
	assert.Equal(t, models.ProductActive, product(t, db, "regular").Status)

	var event models.Event
	require.NoError(t, db.NewSelect().Model(&event).Where("id = ?", "ev1").Scan(context.Background()))
	assert.Equal(t, "regular", event.CurrentTicketProductID)
}

func TestRollOverIgnoresCanceledOrders(t *testing.T) {
	db := testdb.New(t)
	seed(t, db)
	sell(t, db, "o1", models.OrderComplete, "early", 2)
	sell(t, db, "o2", models.OrderCanceled, "early", 1)

	outcomes, err := newRollOver(db).Run(context.Background(), []string{"early"})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Archived)
	assert.Equal(t, 2, outcomes[0].Sold)
	assert.Equal(t, models.ProductActive, product(t, db, "early").Status)
}

func TestRollOverWithoutSuccessor(t *testing.T) {
	db := testdb.New(t)
	seed(t, db)
	sell(t, db, "o1", models.OrderComplete, "shirt", 1)

	outcomes, err := newRollOver(db).Run(context.Background(), []string{"shirt", "parking", "missing"})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, Outcome{ProductID: "shirt", Sold: 1, Archived: true}, outcomes[0])
	assert.Equal(t, models.ProductArchived, product(t, db, "shirt").Status)
}

func TestRollOverIsIdempotent(t *testing.T) {
	db := testdb.New(t)
	seed(t, db)
	sell(t, db, "o1", models.OrderComplete, "early", 3)
	r := newRollOver(db)

	_, err := r.Run(context.Background(), []string{"early"})
	require.NoError(t, err)
	outcomes, err := r.Run(context.Background(), []string{"early"})
	require.NoError(t, err)

	assert.Empty(t, outcomes)
	assert.Equal(t, models.ProductActive, product(t, db, "regular").Status)
}

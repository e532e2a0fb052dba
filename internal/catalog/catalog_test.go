package catalog_test

import (
	"context"
	"testing"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/catalog"
	"ms-boxoffice/internal/database/testdb"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductsByID(t *testing.T) {
	bunDB := testdb.New(t)
	ctx := context.Background()

	products := []models.Product{
		{ID: "ga", Type: models.ProductTicket, Price: decimal.RequireFromString("50.004"), Status: models.ProductActive, AdmissionTier: models.TierGeneral},
		{ID: "vip", Type: models.ProductTicket, Price: decimal.NewFromInt(120), Status: models.ProductArchived, AdmissionTier: models.TierVIP},
		{ID: "hotel", Type: models.ProductAccommodation, Price: decimal.NewFromInt(300), Status: models.ProductActive},
	}
	_, err := bunDB.NewInsert().Model(&products).Exec(ctx)
	require.NoError(t, err)

	reader := catalog.NewReader(bunDB)
	got, err := reader.ProductsByID(ctx, []string{"ga", "vip", "missing"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got["ga"].Price.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, models.ProductArchived, got["vip"].Status)
	assert.NotContains(t, got, "missing")

	empty, err := reader.ProductsByID(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPromoNotFound(t *testing.T) {
	reader := catalog.NewReader(testdb.New(t))

	_, err := reader.Promo(context.Background(), "nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestPromoUsesIgnoresCanceled(t *testing.T) {
	bunDB := testdb.New(t)
	ctx := context.Background()

	orders := []models.Order{
		{ID: "o1", CustomerID: "c", Amount: decimal.NewFromInt(10), PromoID: "p", Status: models.OrderComplete},
		{ID: "o2", CustomerID: "c", Amount: decimal.NewFromInt(10), PromoID: "p", Status: models.OrderCanceled},
		{ID: "o3", CustomerID: "c", Amount: decimal.NewFromInt(10), PromoID: "p", Status: models.OrderTransferred},
		{ID: "o4", CustomerID: "c", Amount: decimal.NewFromInt(10), Status: models.OrderComplete},
	}
	_, err := bunDB.NewInsert().Model(&orders).Exec(ctx)
	require.NoError(t, err)

	n, err := catalog.NewReader(bunDB).PromoUses(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNormalizePromo(t *testing.T) {
	p := &models.Promo{
		PercentDiscount: decimal.NewNullDecimal(decimal.NewFromInt(150)),
		FlatDiscount:    decimal.NewNullDecimal(decimal.NewFromInt(5)),
	}
	catalog.NormalizePromo(p)
	assert.True(t, p.PercentDiscount.Decimal.Equal(decimal.NewFromInt(100)))
	assert.False(t, p.FlatDiscount.Valid)

	priced := &models.Promo{
		Price:           decimal.NewNullDecimal(decimal.RequireFromString("-3")),
		PercentDiscount: decimal.NewNullDecimal(decimal.NewFromInt(10)),
	}
	catalog.NormalizePromo(priced)
	assert.True(t, priced.Price.Decimal.IsZero())
	assert.False(t, priced.PercentDiscount.Valid)
}

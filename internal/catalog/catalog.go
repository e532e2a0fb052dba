package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var hundred = decimal.NewFromInt(100)

// Reader is the read-only view over products and promos used at checkout.
type Reader struct {
	Bun bun.IDB
}

func NewReader(db bun.IDB) *Reader {
	return &Reader{Bun: db}
}

// ProductsByID loads the named products regardless of status, keyed by id.
// Callers decide what an inactive product means for them.
func (r *Reader) ProductsByID(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	err := r.Bun.NewSelect().
		Model(&products).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	for i := range products {
		p := &products[i]
		NormalizeProduct(p)
		out[p.ID] = p
	}
	return out, nil
}

// Promo returns the promo with the given id or a NOT_FOUND error.
func (r *Reader) Promo(ctx context.Context, id string) (*models.Promo, error) {
	var promo models.Promo
	err := r.Bun.NewSelect().
		Model(&promo).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "promo %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select promo: %w", err)
	}

	NormalizePromo(&promo)
	return &promo, nil
}

// PromoUses counts orders placed with a promo that were not canceled.
func (r *Reader) PromoUses(ctx context.Context, promoID string) (int, error) {
	n, err := r.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("promo_id = ?", promoID).
		Where("status != ?", models.OrderCanceled).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count promo uses: %w", err)
	}
	return n, nil
}

// NormalizeProduct rounds the price to cents and floors it at zero.
func NormalizeProduct(p *models.Product) {
	p.Price = nonNegative(p.Price).Round(2)
}

// NormalizePromo rounds money to cents, clamps percentDiscount to 0..100 and
// enforces that only one pricing field is set, preferring price, then
// percent, then flat.
func NormalizePromo(p *models.Promo) {
	if p.Price.Valid {
		p.Price.Decimal = nonNegative(p.Price.Decimal).Round(2)
		p.PercentDiscount = decimal.NullDecimal{}
		p.FlatDiscount = decimal.NullDecimal{}
		return
	}
	if p.PercentDiscount.Valid {
		pct := nonNegative(p.PercentDiscount.Decimal)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		p.PercentDiscount.Decimal = pct
		p.FlatDiscount = decimal.NullDecimal{}
		return
	}
	if p.FlatDiscount.Valid {
		p.FlatDiscount.Decimal = nonNegative(p.FlatDiscount.Decimal).Round(2)
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

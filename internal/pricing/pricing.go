package pricing

import (
	"errors"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnavailableItems marks a cart that references a product which is
// missing or no longer active.
var ErrUnavailableItems = errors.New("unavailable items in cart")

var hundred = decimal.NewFromInt(100)

// Line is one cart line with the unit price the customer actually pays.
type Line struct {
	Product   *models.Product
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Quote struct {
	Lines    []Line
	Subtotal decimal.Decimal
	Promo    *models.Promo
}

// OrderItems returns the immutable purchase records for an order.
func (q *Quote) OrderItems(orderID string) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(q.Lines))
	for _, l := range q.Lines {
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return items
}

// Price resolves every cart line against products and applies promo, if any.
//
// A promo price override replaces the unit price of the bound line. A
// percent or flat coupon reduces it, rounded to cents and floored at zero.
// Whatever the promo does, a zero subtotal is rejected.
func Price(cart []models.CartItem, products map[string]*models.Product, promo *models.Promo) (*Quote, error) {
	if len(cart) == 0 {
		return nil, apperr.New(apperr.Invalid, "cart is empty")
	}

	seen := make(map[string]bool, len(cart))
	lines := make([]Line, 0, len(cart))
	for _, item := range cart {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, apperr.New(apperr.Invalid, "cart items need a product and a positive quantity")
		}
		if seen[item.ProductID] {
			return nil, apperr.Newf(apperr.Invalid, "product %s appears twice in cart", item.ProductID)
		}
		seen[item.ProductID] = true

		product, ok := products[item.ProductID]
		if !ok || !sellable(product) {
			return nil, apperr.Wrap(apperr.Invalid, "unavailable items in cart", ErrUnavailableItems)
		}
		lines = append(lines, Line{Product: product, Quantity: item.Quantity, UnitPrice: product.Price})
	}

	if promo != nil {
		if err := applyPromo(lines, promo); err != nil {
			return nil, err
		}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	if !subtotal.IsPositive() {
		return nil, apperr.New(apperr.Invalid, "order total must be greater than zero")
	}

	return &Quote{Lines: lines, Subtotal: subtotal, Promo: promo}, nil
}

// sellable reports whether a product can be bought. A ticket must name the
// event and tier its guests are admitted with.
func sellable(p *models.Product) bool {
	if p.Status != models.ProductActive {
		return false
	}
	return !p.IsTicket() || (p.EventID != "" && p.AdmissionTier.Valid())
}

func applyPromo(lines []Line, promo *models.Promo) error {
	if promo.Status != models.PromoActive {
		return apperr.New(apperr.Invalid, "promo is no longer available")
	}

	idx := -1
	for i := range lines {
		if lines[i].Product.ID == promo.ProductID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.New(apperr.Invalid, "promo does not apply to any item in cart")
	}
	line := &lines[idx]

	switch promo.Type {
	case models.PromoSingleUse:
		if line.Quantity > promo.ProductQuantity {
			return apperr.Newf(apperr.Invalid, "promo allows at most %d of this item", promo.ProductQuantity)
		}
		if promo.Price.Valid {
			line.UnitPrice = promo.Price.Decimal
		}
	case models.PromoCoupon:
		line.UnitPrice = discounted(line.UnitPrice, promo)
	default:
		return apperr.Newf(apperr.Invalid, "unsupported promo type %q", promo.Type)
	}
	return nil
}

func discounted(price decimal.Decimal, promo *models.Promo) decimal.Decimal {
	switch {
	case promo.Price.Valid:
		price = promo.Price.Decimal
	case promo.PercentDiscount.Valid:
		off := price.Mul(promo.PercentDiscount.Decimal).Div(hundred)
		price = price.Sub(off)
	case promo.FlatDiscount.Valid:
		price = price.Sub(promo.FlatDiscount.Decimal)
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price.Round(2)
}

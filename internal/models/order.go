package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderComplete    OrderStatus = "complete"
	OrderCanceled    OrderStatus = "canceled"
	OrderTransferred OrderStatus = "transferred"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string          `bun:"id,pk" json:"id"`
	CustomerID    string          `bun:"customer_id,notnull" json:"customerId"`
	Amount        decimal.Decimal `bun:"amount,type:numeric(12,2),notnull" json:"amount"`
	PromoID       string          `bun:"promo_id,nullzero" json:"promoId,omitempty"`
	ParentOrderID string          `bun:"parent_order_id,nullzero" json:"parentOrderId,omitempty"`
	Status        OrderStatus     `bun:"status,notnull" json:"status"`
	Created       time.Time       `bun:"created,notnull" json:"created"`
	Updated       time.Time       `bun:"updated,notnull" json:"updated"`

	Items []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// OrderItem is an immutable record of what was purchased and at what unit
// price.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	OrderID   string          `bun:"order_id,pk" json:"orderId"`
	ProductID string          `bun:"product_id,pk" json:"productId"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
	UnitPrice decimal.Decimal `bun:"unit_price,type:numeric(12,2),notnull" json:"unitPrice"`
}

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

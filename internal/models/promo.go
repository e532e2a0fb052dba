package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PromoType string

const (
	PromoSingleUse PromoType = "single-use"
	PromoCoupon    PromoType = "coupon"
)

type PromoStatus string

const (
	PromoActive   PromoStatus = "active"
	PromoClaimed  PromoStatus = "claimed"
	PromoDisabled PromoStatus = "disabled"
)

type Promo struct {
	bun.BaseModel `bun:"table:promos"`

	ID              string              `bun:"id,pk" json:"id"`
	Type            PromoType           `bun:"type,notnull" json:"type"`
	Price           decimal.NullDecimal `bun:"price,type:numeric(12,2)" json:"price"`
	PercentDiscount decimal.NullDecimal `bun:"percent_discount,type:numeric(5,2)" json:"percentDiscount"`
	FlatDiscount    decimal.NullDecimal `bun:"flat_discount,type:numeric(12,2)" json:"flatDiscount"`
	ProductID       string              `bun:"product_id,notnull" json:"productId"`
	ProductQuantity int                 `bun:"product_quantity" json:"productQuantity"`
	MaxUses         *int                `bun:"max_uses" json:"maxUses,omitempty"`
	RecipientName   string              `bun:"recipient_name,nullzero" json:"recipientName,omitempty"`
	Status          PromoStatus         `bun:"status,notnull" json:"status"`
	Created         time.Time           `bun:"created,notnull,default:current_timestamp" json:"created"`
	Updated         time.Time           `bun:"updated,notnull,default:current_timestamp" json:"updated"`
}

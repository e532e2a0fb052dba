package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type ProductType string

const (
	ProductTicket        ProductType = "ticket"
	ProductBundleTicket  ProductType = "bundle-ticket"
	ProductUpgrade       ProductType = "upgrade"
	ProductAccommodation ProductType = "accommodation"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductArchived ProductStatus = "archived"
)

type ProductMeta struct {
	NextTierProductID string `json:"nextTierProductId,omitempty"`
}

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID              string          `bun:"id,pk" json:"id"`
	Name            string          `bun:"name" json:"name"`
	Type            ProductType     `bun:"type,notnull" json:"type"`
	Price           decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	MaxQuantity     *int            `bun:"max_quantity" json:"maxQuantity,omitempty"`
	EventID         string          `bun:"event_id,nullzero" json:"eventId,omitempty"`
	AdmissionTier   AdmissionTier   `bun:"admission_tier,nullzero" json:"admissionTier,omitempty"`
	Promo           bool            `bun:"promo,notnull,default:false" json:"promo"`
	TargetProductID string          `bun:"target_product_id,nullzero" json:"targetProductId,omitempty"`
	Status          ProductStatus   `bun:"status,notnull" json:"status"`
	Meta            ProductMeta     `bun:"meta,type:jsonb" json:"meta"`
	Created         time.Time       `bun:"created,notnull,default:current_timestamp" json:"created"`
	Updated         time.Time       `bun:"updated,notnull,default:current_timestamp" json:"updated"`
}

// IsTicket reports whether each unit of this product admits one guest.
func (p *Product) IsTicket() bool {
	return p.Type == ProductTicket
}

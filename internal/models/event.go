package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventActive   EventStatus = "active"
	EventInactive EventStatus = "inactive"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                     string      `bun:"id,pk" json:"id"`
	Name                   string      `bun:"name,notnull" json:"name"`
	Date                   time.Time   `bun:"date,notnull" json:"date"`
	Status                 EventStatus `bun:"status,notnull" json:"status"`
	OpeningSales           *time.Time  `bun:"opening_sales" json:"openingSales,omitempty"`
	MaxCapacity            *int        `bun:"max_capacity" json:"maxCapacity,omitempty"`
	SalesEnabled           bool        `bun:"sales_enabled,notnull,default:false" json:"salesEnabled"`
	CurrentTicketProductID string      `bun:"current_ticket_product_id,nullzero" json:"currentTicketProductId,omitempty"`
	Created                time.Time   `bun:"created,notnull,default:current_timestamp" json:"created"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type AdmissionTier string

const (
	TierGeneral    AdmissionTier = "general"
	TierVIP        AdmissionTier = "vip"
	TierSponsor    AdmissionTier = "sponsor"
	TierStachepass AdmissionTier = "stachepass"
)

// Rank orders tiers for the downgrade guard. Only general sits below the
// rest.
func (t AdmissionTier) Rank() int {
	if t == TierGeneral || t == "" {
		return 0
	}
	return 1
}

func (t AdmissionTier) Valid() bool {
	switch t {
	case TierGeneral, TierVIP, TierSponsor, TierStachepass:
		return true
	}
	return false
}

type GuestStatus string

const (
	GuestActive    GuestStatus = "active"
	GuestCheckedIn GuestStatus = "checked_in"
	GuestArchived  GuestStatus = "archived"
)

type CreatedReason string

const (
	ReasonPurchase CreatedReason = "purchase"
	ReasonComp     CreatedReason = "comp"
	ReasonTransfer CreatedReason = "transfer"
)

type Guest struct {
	bun.BaseModel `bun:"table:guests"`

	ID            string         `bun:"id,pk" json:"id"`
	FirstName     string         `bun:"first_name,notnull" json:"firstName"`
	LastName      string         `bun:"last_name,notnull" json:"lastName"`
	AdmissionTier AdmissionTier  `bun:"admission_tier,notnull" json:"admissionTier"`
	OrderID       string         `bun:"order_id,nullzero" json:"orderId,omitempty"`
	EventID       string         `bun:"event_id,notnull" json:"eventId"`
	CreatedBy     string         `bun:"created_by,nullzero" json:"createdBy,omitempty"`
	CreatedReason CreatedReason  `bun:"created_reason,notnull" json:"createdReason"`
	TicketSeed    string         `bun:"ticket_seed,unique,notnull" json:"-"`
	Status        GuestStatus    `bun:"status,notnull" json:"status"`
	CheckInTime   *time.Time     `bun:"check_in_time" json:"checkInTime,omitempty"`
	UpdatedBy     string         `bun:"updated_by,nullzero" json:"updatedBy,omitempty"`
	Meta          map[string]any `bun:"meta,type:jsonb" json:"meta,omitempty"`
	Created       time.Time      `bun:"created,notnull,default:current_timestamp" json:"created"`
	Updated       time.Time      `bun:"updated,notnull,default:current_timestamp" json:"updated"`
}

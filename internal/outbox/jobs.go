// Package outbox carries the follow-up work of an order (guest fan-out and
// inventory roll-over) from the order's database transaction to background
// handlers.
package outbox

import (
	"fmt"

	"ms-boxoffice/internal/models"

	"github.com/google/uuid"
)

const (
	TopicGuestFanOut = "boxoffice.guest_fanout"
	TopicInventory   = "boxoffice.inventory_rollover"
)

// Topics lists every topic the router subscribes to.
func Topics() []string {
	return []string{TopicGuestFanOut, TopicInventory}
}

type Job interface {
	Topic() string
	Key() string
}

// TicketSpec is one guest to create. Unit is the guest's position within its
// cart line and restarts at 0 for every line.
type TicketSpec struct {
	EventID       string               `json:"eventId"`
	AdmissionTier models.AdmissionTier `json:"admissionTier"`
	Unit          int                  `json:"unit,omitempty"`
}

// GuestFanOut creates one guest per ticket for an order. The first unit of
// each line carries the holder's name; the rest get " Guest j" appended to
// the last name.
type GuestFanOut struct {
	OrderID       string               `json:"orderId"`
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	CreatedBy     string               `json:"createdBy"`
	CreatedReason models.CreatedReason `json:"createdReason"`
	Tickets       []TicketSpec         `json:"tickets"`
}

func (GuestFanOut) Topic() string { return TopicGuestFanOut }
func (j GuestFanOut) Key() string { return j.OrderID }

// GuestID is the id of the j-th guest of an order. It is derived from the
// order so a replayed job inserts the same rows.
func GuestID(orderID string, j int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/guest/%d", orderID, j))).String()
}

// GuestLastName returns the last name of the i-th guest.
func (j GuestFanOut) GuestLastName(i int) string {
	unit := 0
	if i < len(j.Tickets) {
		unit = j.Tickets[i].Unit
	}
	if unit == 0 {
		return j.LastName
	}
	return fmt.Sprintf("%s Guest %d", j.LastName, unit)
}

// InventoryCheck rolls over sold-out products after a sale.
type InventoryCheck struct {
	OrderID    string   `json:"orderId"`
	ProductIDs []string `json:"productIds"`
}

func (InventoryCheck) Topic() string { return TopicInventory }
func (j InventoryCheck) Key() string { return j.OrderID }

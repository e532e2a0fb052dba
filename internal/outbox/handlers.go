package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/inventory"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/tickets"

	"github.com/ThreeDotsLabs/watermill/message"
)

type GuestCreator interface {
	CreateGuests(ctx context.Context, inputs []tickets.NewGuest, ids []string) ([]models.Guest, error)
}

type Roller interface {
	Run(ctx context.Context, productIDs []string) ([]inventory.Outcome, error)
}

type Handlers struct {
	Guests    GuestCreator
	Inventory Roller
	Log       *logger.Logger
}

func NewHandlers(guests GuestCreator, roller Roller, log *logger.Logger) *Handlers {
	return &Handlers{Guests: guests, Inventory: roller, Log: log}
}

// FanOutGuests creates the guests of an order. Guest ids are derived from
// the order id, so redelivery does not duplicate guests. A job the guest
// store rejects as invalid is logged and acked; retrying it cannot succeed.
func (h *Handlers) FanOutGuests(msg *message.Message) error {
	var job GuestFanOut
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		h.Log.Error("OUTBOX", fmt.Sprintf("Dropping malformed guest fan-out %s: %v", msg.UUID, err))
		return nil
	}
	if len(job.Tickets) == 0 {
		return nil
	}

	inputs := make([]tickets.NewGuest, len(job.Tickets))
	ids := make([]string, len(job.Tickets))
	for i, t := range job.Tickets {
		inputs[i] = tickets.NewGuest{
			FirstName:     job.FirstName,
			LastName:      job.GuestLastName(i),
			EventID:       t.EventID,
			AdmissionTier: t.AdmissionTier,
			OrderID:       job.OrderID,
			CreatedBy:     job.CreatedBy,
			CreatedReason: job.CreatedReason,
		}
		ids[i] = GuestID(job.OrderID, i)
	}

	if _, err := h.Guests.CreateGuests(msg.Context(), inputs, ids); err != nil {
		if apperr.Is(err, apperr.Invalid) {
			h.Log.Error("OUTBOX", fmt.Sprintf("Dropping invalid guest fan-out for order %s: %v", job.OrderID, err))
			return nil
		}
		return fmt.Errorf("fan out guests for order %s: %w", job.OrderID, err)
	}

	h.Log.LogOrder("GUESTS", job.OrderID, fmt.Sprintf("%d %s guests created", len(ids), job.CreatedReason))
	return nil
}

// RollOverInventory archives sold-out products of an order.
func (h *Handlers) RollOverInventory(msg *message.Message) error {
	var job InventoryCheck
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		h.Log.Error("OUTBOX", fmt.Sprintf("Dropping malformed inventory check %s: %v", msg.UUID, err))
		return nil
	}

	if _, err := h.Inventory.Run(msg.Context(), job.ProductIDs); err != nil {
		return fmt.Errorf("roll over inventory for order %s: %w", job.OrderID, err)
	}
	return nil
}

// BestEffort acknowledges a message whose handler still fails after the
// inner retries, so a stuck job does not block its topic.
func BestEffort(log *logger.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			msgs, err := h(msg)
			if err != nil {
				log.Error("OUTBOX", fmt.Sprintf("Giving up on %s (key %s): %v", msg.UUID, msg.Metadata.Get(keyMetadata), err))
				return nil, nil
			}
			return msgs, nil
		}
	}
}

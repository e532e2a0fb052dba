package order

import (
	"context"
	"fmt"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/outbox"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferInput struct {
	Transferee CustomerInput `json:"transferee"`
	GuestIDs   []string      `json:"guestIds"`
}

type TransferResult struct {
	Transferee *models.Customer `json:"transferee"`
	Order      *models.Order    `json:"order"`
}

// TransferTickets moves the selected guests of an order to a new customer.
// The transferee gets a zero-amount child order; the selected guests are
// archived on the original and recreated on the child. Other guests of the
// original order are untouched.
func (s *OrderService) TransferTickets(ctx context.Context, orderID string, in TransferInput, updatedBy string) (*TransferResult, error) {
	ids := uniqueIDs(in.GuestIDs)
	if len(ids) == 0 {
		return nil, apperr.New(apperr.Invalid, "at least one guest id is required")
	}
	transferee, err := in.Transferee.normalize()
	if err != nil {
		return nil, err
	}

	parent, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if parent.Status == models.OrderCanceled {
		return nil, apperr.Newf(apperr.NotPermitted, "order %s was canceled", orderID).WithContext(parent)
	}

	guests, err := s.Guests.GuestsByOrder(ctx, orderID, ids...)
	if err != nil {
		return nil, err
	}
	if len(guests) == 0 {
		return nil, apperr.Newf(apperr.NotFound, "no matching guests on order %s", orderID)
	}
	if len(guests) != len(ids) {
		return nil, apperr.Newf(apperr.NotFound, "%d of %d guests are not on order %s", len(ids)-len(guests), len(ids), orderID)
	}
	for i := range guests {
		if guests[i].Status != models.GuestActive {
			return nil, apperr.Newf(apperr.NotPermitted, "guest %s is %s", guests[i].ID, guests[i].Status).
				WithContext(&guests[i])
		}
	}

	now := s.Now()
	customer, err := s.DB.UpsertCustomer(ctx, &models.Customer{
		ID:        uuid.NewString(),
		FirstName: transferee.FirstName,
		LastName:  transferee.LastName,
		Email:     transferee.Email,
		Created:   now,
		Updated:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert transferee: %w", err)
	}

	child := &models.Order{
		ID:            uuid.NewString(),
		CustomerID:    customer.ID,
		Amount:        decimal.Zero,
		ParentOrderID: parent.ID,
		Status:        models.OrderComplete,
		Created:       now,
		Updated:       now,
	}

	job := outbox.GuestFanOut{
		OrderID:       child.ID,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		CreatedBy:     updatedBy,
		CreatedReason: models.ReasonTransfer,
	}
	for i, g := range guests {
		job.Tickets = append(job.Tickets, outbox.TicketSpec{EventID: g.EventID, AdmissionTier: g.AdmissionTier, Unit: i})
	}

	if err := s.DB.SaveTransfer(ctx, child, ids, updatedBy, s.enqueue(job)); err != nil {
		return nil, err
	}

	if s.Kafka != nil {
		s.detach(ctx, "order.transferred event", child.ID, func(ctx context.Context) error {
			return s.Kafka.PublishOrderTransferred(ctx, child)
		})
	}

	s.Log.LogOrder("TRANSFER", orderID, fmt.Sprintf("%d guest(s) to %s as order %s", len(ids), customer.Email, child.ID))
	return &TransferResult{Transferee: customer, Order: child}, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

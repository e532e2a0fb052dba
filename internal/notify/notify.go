// Package notify hands receipts and mailing-list updates to the delivery
// services through Kafka.
package notify

import (
	"context"
	"strings"

	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TypeReceipt    = "receipt"
	TypeSubscriber = "mailing_list.subscriber"
)

// Receipt is what the mailer needs to send an order confirmation.
type Receipt struct {
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	ConfirmationID string          `json:"confirmationId"`
	OrderID        string          `json:"orderId"`
	OrderToken     string          `json:"orderToken"`
	Amount         decimal.Decimal `json:"amount"`
}

// Subscriber is a mailing-list upsert.
type Subscriber struct {
	ListID    string   `json:"listId"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Tags      []string `json:"tags"`
}

type Dispatcher interface {
	SendReceipt(ctx context.Context, r Receipt) error
	UpsertSubscriber(ctx context.Context, s Subscriber) error
}

// ConfirmationID is the short code shown to the purchaser.
func ConfirmationID(orderID string) string {
	id := strings.ReplaceAll(orderID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// SubscriberFor builds the mailing-list entry for a purchaser. Everyone gets
// the attendee tag; the partner tag needs marketing consent.
func SubscriberFor(cfg config.NotifyConfig, c *models.Customer, marketingOptIn bool) Subscriber {
	tags := []string{cfg.AttendeeTag}
	if marketingOptIn {
		tags = append(tags, cfg.PartnerTag)
	}
	return Subscriber{
		ListID:    cfg.MailingListID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Tags:      tags,
	}
}

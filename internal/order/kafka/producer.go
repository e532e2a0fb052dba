package kafka

import (
	"context"
	"time"

	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
)

const (
	OrderCreated     = "order.created"
	OrderRefunded    = "order.refunded"
	OrderTransferred = "order.transferred"
)

// Publisher writes a JSON message to a topic. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

// OrderEvent is the record downstream analytics consume from the order
// events topic.
type OrderEvent struct {
	Type          string             `json:"type"`
	OrderID       string             `json:"orderId"`
	CustomerID    string             `json:"customerId"`
	Amount        decimal.Decimal    `json:"amount"`
	Status        models.OrderStatus `json:"status"`
	PromoID       string             `json:"promoId,omitempty"`
	ParentOrderID string             `json:"parentOrderId,omitempty"`
	Items         []models.OrderItem `json:"items,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

type Events struct {
	Publisher Publisher
	Topic     string
}

func NewEvents(p Publisher, topic string) *Events {
	return &Events{Publisher: p, Topic: topic}
}

func (e *Events) publish(ctx context.Context, eventType string, order *models.Order) error {
	return e.Publisher.Publish(ctx, e.Topic, order.ID, OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Amount:        order.Amount,
		Status:        order.Status,
		PromoID:       order.PromoID,
		ParentOrderID: order.ParentOrderID,
		Items:         order.Items,
		OccurredAt:    time.Now().UTC(),
	})
}

// PublishOrderCreated streams a paid order to Kafka.
func (e *Events) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return e.publish(ctx, OrderCreated, order)
}

// PublishOrderRefunded streams a refunded or voided order to Kafka.
func (e *Events) PublishOrderRefunded(ctx context.Context, order *models.Order) error {
	return e.publish(ctx, OrderRefunded, order)
}

// PublishOrderTransferred streams the child order of a transfer to Kafka.
func (e *Events) PublishOrderTransferred(ctx context.Context, order *models.Order) error {
	return e.publish(ctx, OrderTransferred, order)
}

package notify

import (
	"context"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

// envelope tags each notification so one topic can carry both kinds.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// KafkaDispatcher publishes notifications for the mailer service to pick up.
type KafkaDispatcher struct {
	Publisher Publisher
	Topic     string
}

func NewKafkaDispatcher(p Publisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{Publisher: p, Topic: topic}
}

func (d *KafkaDispatcher) SendReceipt(ctx context.Context, r Receipt) error {
	return d.Publisher.Publish(ctx, d.Topic, r.OrderID, envelope{Type: TypeReceipt, Data: r})
}

func (d *KafkaDispatcher) UpsertSubscriber(ctx context.Context, s Subscriber) error {
	return d.Publisher.Publish(ctx, d.Topic, s.Email, envelope{Type: TypeSubscriber, Data: s})
}

// Nop drops every notification. It stands in when Kafka is disabled.
type Nop struct{}

func (Nop) SendReceipt(context.Context, Receipt) error { return nil }
func (Nop) UpsertSubscriber(context.Context, Subscriber) error { return nil }

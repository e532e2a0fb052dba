package notify

import (
	"context"
	"testing"

	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, v any) error {
	return m.Called(ctx, topic, key, v).Error(0)
}

var notifyCfg = config.NotifyConfig{MailingListID: "list-1", AttendeeTag: "Attendee", PartnerTag: "Partner Marketing"}

func TestSubscriberTags(t *testing.T) {
	c := &models.Customer{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}

	assert.Equal(t, []string{"Attendee"}, SubscriberFor(notifyCfg, c, false).Tags)

	s := SubscriberFor(notifyCfg, c, true)
	assert.Equal(t, []string{"Attendee", "Partner Marketing"}, s.Tags)
	assert.Equal(t, "list-1", s.ListID)
	assert.Equal(t, "ada@example.com", s.Email)
}

func TestConfirmationID(t *testing.T) {
	assert.Equal(t, "3F2A9C1B", ConfirmationID("3f2a9c1b-0d4e-4b8a-9c51-7e0f2a6b1c3d"))
	assert.Equal(t, "ABC", ConfirmationID("abc"))
}

func TestKafkaDispatcherEnvelopes(t *testing.T) {
	pub := new(MockPublisher)
	d := NewKafkaDispatcher(pub, "notifications")
	receipt := Receipt{OrderID: "ord-1", Email: "ada@example.com", Amount: decimal.NewFromInt(100)}
	sub := Subscriber{Email: "ada@example.com", Tags: []string{"Attendee"}}

	pub.On("Publish", mock.Anything, "notifications", "ord-1", envelope{Type: TypeReceipt, Data: receipt}).Return(nil)
	pub.On("Publish", mock.Anything, "notifications", "ada@example.com", envelope{Type: TypeSubscriber, Data: sub}).Return(nil)

	assert.NoError(t, d.SendReceipt(context.Background(), receipt))
	assert.NoError(t, d.UpsertSubscriber(context.Background(), sub))
	pub.AssertExpectations(t)
}

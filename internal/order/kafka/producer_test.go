package kafka

import (
	"context"
	"testing"

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

func TestOrderEventsCarryTypeAndKey(t *testing.T) {
	tests := []struct {
		name    string
		publish func(*Events, context.Context, *models.Order) error
		want    string
	}{
		{"created", (*Events).PublishOrderCreated, OrderCreated},
		{"refunded", (*Events).PublishOrderRefunded, OrderRefunded},
		{"transferred", (*Events).PublishOrderTransferred, OrderTransferred},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pub := new(MockPublisher)
			pub.On("Publish", mock.Anything, "order-events", "ord-1", mock.MatchedBy(func(e OrderEvent) bool {
				return e.Type == tc.want && e.OrderID == "ord-1" && e.Amount.Equal(decimal.NewFromInt(100))
			})).Return(nil)

			order := &models.Order{ID: "ord-1", CustomerID: "c1", Amount: decimal.NewFromInt(100), Status: models.OrderComplete}
			err := tc.publish(NewEvents(pub, "order-events"), context.Background(), order)

			assert.NoError(t, err)
			pub.AssertExpectations(t)
		})
	}
}

package order_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/notify"
	orderdb "ms-boxoffice/internal/order/db"
	"ms-boxoffice/internal/outbox"
	"ms-boxoffice/internal/payment"

	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) UpsertCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockDBLayer) ClaimPromo(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) ReleasePromo(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// SaveOrder runs enqueue with a zero transaction when the mocked call
// succeeds, the way the real store does inside its transaction.
func (m *MockDBLayer) SaveOrder(ctx context.Context, order *models.Order, sale *models.Transaction, enqueue orderdb.Enqueue) error {
	if err := m.Called(ctx, order, sale).Error(0); err != nil {
		return err
	}
	if enqueue != nil {
		return enqueue(ctx, bun.Tx{})
	}
	return nil
}

func (m *MockDBLayer) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockDBLayer) SaleTransaction(ctx context.Context, orderID string) (*models.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockDBLayer) RecordReversal(ctx context.Context, orderID string, reversal *models.Transaction, updatedBy string, at time.Time) error {
	return m.Called(ctx, orderID, reversal, updatedBy, at).Error(0)
}

func (m *MockDBLayer) SaveTransfer(ctx context.Context, child *models.Order, guestIDs []string, updatedBy string, enqueue orderdb.Enqueue) error {
	if err := m.Called(ctx, child, guestIDs, updatedBy).Error(0); err != nil {
		return err
	}
	if enqueue != nil {
		return enqueue(ctx, bun.Tx{})
	}
	return nil
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ProductsByID(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Product), args.Error(1)
}

func (m *MockCatalog) Promo(ctx context.Context, id string) (*models.Promo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Promo), args.Error(1)
}

func (m *MockCatalog) PromoUses(ctx context.Context, promoID string) (int, error) {
	args := m.Called(ctx, promoID)
	return args.Int(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Sale(ctx context.Context, req payment.SaleRequest) (*payment.SaleResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.SaleResult), args.Error(1)
}

func (m *MockGateway) Find(ctx context.Context, id string) (*payment.TransactionStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.TransactionStatus), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, id string) (*payment.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockGateway) Void(ctx context.Context, id string) (*payment.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Acquire(ctx context.Context, credential, orderID string) (bool, error) {
	args := m.Called(ctx, credential, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLock) Release(ctx context.Context, credential, orderID string) error {
	return m.Called(ctx, credential, orderID).Error(0)
}

type MockKafka struct {
	mock.Mock
}

func (m *MockKafka) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockKafka) PublishOrderRefunded(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockKafka) PublishOrderTransferred(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) SendReceipt(ctx context.Context, r notify.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockDispatcher) UpsertSubscriber(ctx context.Context, s notify.Subscriber) error {
	return m.Called(ctx, s).Error(0)
}

type MockGuests struct {
	mock.Mock
}

func (m *MockGuests) GuestsByOrder(ctx context.Context, orderID string, ids ...string) ([]models.Guest, error) {
	args := m.Called(ctx, orderID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Guest), args.Error(1)
}

type recordingOutbox struct {
	mu   sync.Mutex
	jobs []outbox.Job
}

func (r *recordingOutbox) Enqueue(_ context.Context, _ *sql.Tx, jobs ...outbox.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobs...)
	return nil
}

func (r *recordingOutbox) fanOut() *outbox.GuestFanOut {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if j, ok := job.(outbox.GuestFanOut); ok {
			return &j
		}
	}
	return nil
}

type fixedTokens struct{}

func (fixedTokens) Issue(orderID string, _ time.Time) (string, error) {
	return "token-" + orderID, nil
}

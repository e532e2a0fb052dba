package order

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/notify"
	orderdb "ms-boxoffice/internal/order/db"
	"ms-boxoffice/internal/outbox"
	"ms-boxoffice/internal/payment"

	"github.com/uptrace/bun"
)

type DBLayer interface {
	UpsertCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error)
	ClaimPromo(ctx context.Context, id string, at time.Time) (bool, error)
	ReleasePromo(ctx context.Context, id string, at time.Time) error
	SaveOrder(ctx context.Context, order *models.Order, sale *models.Transaction, enqueue orderdb.Enqueue) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SaleTransaction(ctx context.Context, orderID string) (*models.Transaction, error)
	RecordReversal(ctx context.Context, orderID string, reversal *models.Transaction, updatedBy string, at time.Time) error
	SaveTransfer(ctx context.Context, child *models.Order, guestIDs []string, updatedBy string, enqueue orderdb.Enqueue) error
}

type Catalog interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]*models.Product, error)
	Promo(ctx context.Context, id string) (*models.Promo, error)
	PromoUses(ctx context.Context, promoID string) (int, error)
}

type CheckoutLock interface {
	Acquire(ctx context.Context, credential, orderID string) (bool, error)
	Release(ctx context.Context, credential, orderID string) error
}

type Outbox interface {
	Enqueue(ctx context.Context, tx *sql.Tx, jobs ...outbox.Job) error
}

type KafkaPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderRefunded(ctx context.Context, order *models.Order) error
	PublishOrderTransferred(ctx context.Context, order *models.Order) error
}

type GuestReader interface {
	GuestsByOrder(ctx context.Context, orderID string, ids ...string) ([]models.Guest, error)
}

type TokenIssuer interface {
	Issue(orderID string, issuedAt time.Time) (string, error)
}

type OrderService struct {
	DB       DBLayer
	Catalog  Catalog
	Gateway  payment.Gateway
	Lock     CheckoutLock
	Outbox   Outbox
	Kafka    KafkaPublisher
	Notify   notify.Dispatcher
	Guests   GuestReader
	Tokens   TokenIssuer
	Log      *logger.Logger
	Checkout config.CheckoutConfig
	Mailing  config.NotifyConfig
	Now      func() time.Time

	// background tracks fire-and-forget work started after a response.
	background sync.WaitGroup
}

type Deps struct {
	DB      DBLayer
	Catalog Catalog
	Gateway payment.Gateway
	Lock    CheckoutLock
	Outbox  Outbox
	Kafka   KafkaPublisher
	Notify  notify.Dispatcher
	Guests  GuestReader
	Tokens  TokenIssuer
}

func NewOrderService(d Deps, checkout config.CheckoutConfig, mailing config.NotifyConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       d.DB,
		Catalog:  d.Catalog,
		Gateway:  d.Gateway,
		Lock:     d.Lock,
		Outbox:   d.Outbox,
		Kafka:    d.Kafka,
		Notify:   d.Notify,
		Guests:   d.Guests,
		Tokens:   d.Tokens,
		Log:      log,
		Checkout: checkout,
		Mailing:  mailing,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- ORDERS ----------------

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrder(ctx, id)
}

// Wait blocks until every receipt, subscriber and event publish started so
// far has finished.
func (s *OrderService) Wait() {
	s.background.Wait()
}

// enqueue returns the hook that records jobs inside the order transaction.
func (s *OrderService) enqueue(jobs ...outbox.Job) orderdb.Enqueue {
	if s.Outbox == nil {
		return nil
	}
	return func(ctx context.Context, tx bun.Tx) error {
		return s.Outbox.Enqueue(ctx, tx.Tx, jobs...)
	}
}

// detach runs fn after the request has been answered. Its failures are
// logged and never reach the caller.
func (s *OrderService) detach(ctx context.Context, what, orderID string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := fn(ctx); err != nil {
			s.Log.Error("ORDER", fmt.Sprintf("%s for order %s failed: %v", what, orderID, err))
		}
	}()
}

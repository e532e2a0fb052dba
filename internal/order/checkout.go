package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/notify"
	orderdb "ms-boxoffice/internal/order/db"
	"ms-boxoffice/internal/outbox"
	"ms-boxoffice/internal/payment"
	"ms-boxoffice/internal/pricing"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`.+@.+\..{2,}`)

type CustomerInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (c CustomerInput) normalize() (CustomerInput, error) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.FirstName == "" || c.LastName == "" || c.Email == "" {
		return c, apperr.New(apperr.Invalid, "first name, last name and email are required")
	}
	if !emailPattern.MatchString(c.Email) {
		return c, apperr.Newf(apperr.Invalid, "%q is not a valid email", c.Email)
	}
	return c, nil
}

type CreateOrderInput struct {
	PaymentCredential string            `json:"paymentCredential"`
	Cart              []models.CartItem `json:"cart"`
	Customer          CustomerInput     `json:"customer"`
	PromoID           string            `json:"promoId,omitempty"`
	MarketingOptIn    bool              `json:"marketingOptIn"`
}

type CreateOrderResult struct {
	Order          *models.Order       `json:"order"`
	Transaction    *models.Transaction `json:"transaction"`
	Customer       *models.Customer    `json:"customer"`
	ConfirmationID string              `json:"confirmationId"`
	Token          string              `json:"token"`
}

// CreateOrder prices the cart, charges the customer and records the paid
// order. Once the charge succeeds the order is reported as placed even if
// recording it fails; that case is logged for reconciliation.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Cart) == 0 {
		return nil, apperr.New(apperr.Invalid, "cart is empty")
	}
	if strings.TrimSpace(in.PaymentCredential) == "" {
		return nil, apperr.New(apperr.Invalid, "payment credential is required")
	}
	buyer, err := in.Customer.normalize()
	if err != nil {
		return nil, err
	}

	// Step 1: Price the cart
	quote, err := s.quote(ctx, in.Cart, in.PromoID)
	if err != nil {
		return nil, err
	}

	// Step 2: Upsert the customer
	now := s.Now()
	customer, err := s.DB.UpsertCustomer(ctx, &models.Customer{
		ID:        uuid.NewString(),
		FirstName: buyer.FirstName,
		LastName:  buyer.LastName,
		Email:     buyer.Email,
		Created:   now,
		Updated:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	order := &models.Order{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Amount:     quote.Subtotal,
		PromoID:    in.PromoID,
		Status:     models.OrderComplete,
		Created:    now,
		Updated:    now,
	}
	order.Items = quote.OrderItems(order.ID)

	// Step 3: Lock the credential against a double submit
	if err := s.lock(ctx, in.PaymentCredential, order.ID); err != nil {
		return nil, err
	}

	// Step 4: Claim a single-use promo before money moves
	claimed := false
	if quote.Promo != nil && quote.Promo.Type == models.PromoSingleUse {
		ok, err := s.DB.ClaimPromo(ctx, quote.Promo.ID, now)
		if err != nil {
			s.unlock(ctx, in.PaymentCredential, order.ID)
			return nil, fmt.Errorf("claim promo: %w", err)
		}
		if !ok {
			s.unlock(ctx, in.PaymentCredential, order.ID)
			return nil, apperr.New(apperr.Invalid, "promo has already been used")
		}
		claimed = true
	}

	// Step 5: Charge
	sale, err := s.charge(ctx, order, in.PaymentCredential)
	if err != nil {
		if claimed {
			if rerr := s.DB.ReleasePromo(context.WithoutCancel(ctx), quote.Promo.ID, s.Now()); rerr != nil {
				s.Log.Error("ORDER", fmt.Sprintf("Failed to release promo %s after failed charge: %v", quote.Promo.ID, rerr))
			}
		}
		s.unlock(ctx, in.PaymentCredential, order.ID)
		return nil, err
	}

	// Step 6: Record the order with its follow-up jobs
	s.persist(ctx, order, sale, s.enqueue(
		guestFanOut(order.ID, customer, quote),
		outbox.InventoryCheck{OrderID: order.ID, ProductIDs: productIDs(quote)},
	))

	result := &CreateOrderResult{
		Order:          order,
		Transaction:    sale,
		Customer:       customer,
		ConfirmationID: notify.ConfirmationID(order.ID),
	}
	if s.Tokens != nil {
		token, err := s.Tokens.Issue(order.ID, order.Created)
		if err != nil {
			s.Log.Error("ORDER", fmt.Sprintf("Failed to issue order token for %s: %v", order.ID, err))
		}
		result.Token = token
	}

	// The lock is left to expire so the credential cannot be charged again
	// within its TTL.

	// Step 7: Tell everyone else
	s.announce(ctx, result, in.MarketingOptIn)

	s.Log.LogOrder("CREATE", order.ID, fmt.Sprintf("%s paid %s for %d line(s)", customer.Email, order.Amount.StringFixed(2), len(order.Items)))
	return result, nil
}

func (s *OrderService) quote(ctx context.Context, cart []models.CartItem, promoID string) (*pricing.Quote, error) {
	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	products, err := s.Catalog.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	var promo *models.Promo
	if promoID != "" {
		promo, err = s.Catalog.Promo(ctx, promoID)
		if err != nil {
			return nil, err
		}
		if promo.Type == models.PromoCoupon && promo.MaxUses != nil {
			uses, err := s.Catalog.PromoUses(ctx, promo.ID)
			if err != nil {
				return nil, err
			}
			if uses >= *promo.MaxUses {
				return nil, apperr.New(apperr.Invalid, "promo has reached its usage limit")
			}
		}
	}

	quote, err := pricing.Price(cart, products, promo)
	if errors.Is(err, pricing.ErrUnavailableItems) {
		return nil, apperr.Wrap(apperr.Gone, "items in your cart became unavailable", err)
	}
	return quote, err
}

func (s *OrderService) lock(ctx context.Context, credential, orderID string) error {
	if s.Lock == nil {
		return nil
	}
	ok, err := s.Lock.Acquire(ctx, credential, orderID)
	if err != nil {
		// Stripe's idempotency key still guards the charge itself.
		s.Log.Warn("ORDER", fmt.Sprintf("Checkout lock unavailable for order %s: %v", orderID, err))
		return nil
	}
	if !ok {
		return apperr.New(apperr.Invalid, "a checkout with this payment method is already in progress")
	}
	return nil
}

func (s *OrderService) unlock(ctx context.Context, credential, orderID string) {
	if s.Lock == nil {
		return
	}
	if err := s.Lock.Release(context.WithoutCancel(ctx), credential, orderID); err != nil {
		s.Log.Warn("ORDER", fmt.Sprintf("Failed to release checkout lock for order %s: %v", orderID, err))
	}
}

func (s *OrderService) charge(ctx context.Context, order *models.Order, credential string) (*models.Transaction, error) {
	metadata := map[string]string{
		"customer_id": order.CustomerID,
		"order_id":    order.ID,
	}
	if order.PromoID != "" {
		metadata["promo_id"] = order.PromoID
	}

	res, err := s.Gateway.Sale(ctx, payment.SaleRequest{
		Reference:  order.ID,
		Amount:     order.Amount,
		Credential: credential,
		Metadata:   metadata,
	})
	if err != nil {
		s.Log.LogPayment("SALE", order.ID, fmt.Sprintf("processor error: %v", err))
		return nil, apperr.Wrap(apperr.Unknown, "payment could not be processed", err)
	}
	if !res.Success {
		s.Log.LogPayment("SALE", order.ID, "declined: "+res.Message)
		return nil, apperr.Newf(apperr.PaymentDeclined, "payment declined: %s", res.Message)
	}

	s.Log.LogPayment("SALE", order.ID, fmt.Sprintf("charged %s as %s", order.Amount.StringFixed(2), res.TransactionID))
	return &models.Transaction{
		ID:                     uuid.NewString(),
		OrderID:                order.ID,
		Processor:              s.Gateway.Name(),
		ProcessorTransactionID: res.TransactionID,
		ProcessorCreatedAt:     res.CreatedAt,
		Type:                   models.TransactionSale,
		Amount:                 order.Amount,
		Created:                s.Now(),
	}, nil
}

// persist writes a charged order, retrying only the local write. The charge
// is never repeated.
func (s *OrderService) persist(ctx context.Context, order *models.Order, sale *models.Transaction, enqueue orderdb.Enqueue) {
	ctx = context.WithoutCancel(ctx)
	attempts := s.Checkout.PersistRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.DB.SaveOrder(ctx, order, sale, enqueue)
		if err == nil {
			return
		}
		s.Log.LogReconcile(order.ID, sale.ProcessorTransactionID, fmt.Errorf("attempt %d/%d: %w", attempt, attempts, err))
		if attempt < attempts {
			time.Sleep(s.Checkout.PersistBackoff * time.Duration(attempt))
		}
	}
}

func (s *OrderService) announce(ctx context.Context, result *CreateOrderResult, marketingOptIn bool) {
	order, customer := result.Order, result.Customer
	if s.Kafka != nil {
		s.detach(ctx, "order.created event", order.ID, func(ctx context.Context) error {
			return s.Kafka.PublishOrderCreated(ctx, order)
		})
	}
	if s.Notify == nil {
		return
	}
	if s.Mailing.ReceiptEnabled {
		receipt := notify.Receipt{
			FirstName:      customer.FirstName,
			LastName:       customer.LastName,
			Email:          customer.Email,
			ConfirmationID: result.ConfirmationID,
			OrderID:        order.ID,
			OrderToken:     result.Token,
			Amount:         order.Amount,
		}
		s.detach(ctx, "receipt", order.ID, func(ctx context.Context) error {
			return s.Notify.SendReceipt(ctx, receipt)
		})
	}
	if s.Mailing.MailingListID != "" {
		sub := notify.SubscriberFor(s.Mailing, customer, marketingOptIn)
		s.detach(ctx, "mailing list upsert", order.ID, func(ctx context.Context) error {
			return s.Notify.UpsertSubscriber(ctx, sub)
		})
	}
}

// guestFanOut names one guest per ticket unit after the purchaser.
func guestFanOut(orderID string, customer *models.Customer, quote *pricing.Quote) outbox.GuestFanOut {
	job := outbox.GuestFanOut{
		OrderID:       orderID,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		CreatedBy:     customer.ID,
		CreatedReason: models.ReasonPurchase,
	}
	for _, line := range quote.Lines {
		if !line.Product.IsTicket() {
			continue
		}
		for i := 0; i < line.Quantity; i++ {
			job.Tickets = append(job.Tickets, outbox.TicketSpec{
				EventID:       line.Product.EventID,
				AdmissionTier: line.Product.AdmissionTier,
				Unit:          i,
			})
		}
	}
	return job
}

func productIDs(quote *pricing.Quote) []string {
	ids := make([]string, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		if line.Product.MaxQuantity != nil {
			ids = append(ids, line.Product.ID)
		}
	}
	return ids
}

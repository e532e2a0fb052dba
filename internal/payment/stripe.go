package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-boxoffice/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeGateway implements Gateway with PaymentIntents. The payment credential
// is a PaymentMethod id created by Stripe.js on the client.
type StripeGateway struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

func NewStripeGateway(secretKey, currency string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY not set")
		return nil, ErrStripeClientInitFailed
	}
	return newStripeGateway(client.New(secretKey, nil), currency, log), nil
}

func newStripeGateway(sc *client.API, currency string, log *logger.Logger) *StripeGateway {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{client: sc, currency: currency, log: log}
}

func (s *StripeGateway) Name() string {
	return "stripe"
}

func (s *StripeGateway) Sale(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toCents(req.Amount)),
		Currency:           stripe.String(s.currency),
		PaymentMethod:      stripe.String(req.Credential),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodManual)),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Metadata:           make(map[string]string, len(req.Metadata)),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Reference != "" {
		params.SetIdempotencyKey("sale-" + req.Reference)
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			s.log.LogPayment("DECLINED", req.Reference, stripeErr.Msg)
			return &SaleResult{Success: false, Message: stripeErr.Msg}, nil
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		s.log.LogPayment("SALE", req.Reference, fmt.Sprintf("payment intent %s %s", pi.ID, pi.Status))
		return &SaleResult{
			Success:       true,
			TransactionID: pi.ID,
			CreatedAt:     time.Unix(pi.Created, 0).UTC(),
		}, nil
	default:
		s.log.LogPayment("DECLINED", req.Reference, fmt.Sprintf("payment intent %s ended in %s", pi.ID, pi.Status))
		return &SaleResult{Success: false, TransactionID: pi.ID, Message: fmt.Sprintf("payment %s", strings.ReplaceAll(string(pi.Status), "_", " "))}, nil
	}
}

func (s *StripeGateway) Find(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.client.PaymentIntents.Get(transactionID, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}

	return &TransactionStatus{
		TransactionID: pi.ID,
		Status:        settlementStatus(pi.Status),
		Amount:        fromCents(pi.Amount),
	}, nil
}

func (s *StripeGateway) Refund(ctx context.Context, transactionID string) (*Result, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(transactionID)}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + transactionID)

	r, err := s.client.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}

	s.log.LogPayment("REFUND", transactionID, fmt.Sprintf("refund %s %s", r.ID, r.Status))
	return &Result{
		TransactionID: r.ID,
		CreatedAt:     time.Unix(r.Created, 0).UTC(),
		Amount:        fromCents(r.Amount),
	}, nil
}

func (s *StripeGateway) Void(ctx context.Context, transactionID string) (*Result, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey("void-" + transactionID)

	pi, err := s.client.PaymentIntents.Cancel(transactionID, params)
	if err != nil {
		return nil, fmt.Errorf("cancel payment intent: %w", err)
	}

	s.log.LogPayment("VOID", transactionID, string(pi.Status))
	created := time.Now().UTC()
	if pi.CanceledAt > 0 {
		created = time.Unix(pi.CanceledAt, 0).UTC()
	}
	return &Result{
		TransactionID: pi.ID,
		CreatedAt:     created,
		Amount:        fromCents(pi.Amount),
	}, nil
}

func settlementStatus(s stripe.PaymentIntentStatus) SettlementStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSettled
	case stripe.PaymentIntentStatusProcessing:
		return StatusSettling
	case stripe.PaymentIntentStatusCanceled:
		return StatusVoided
	case stripe.PaymentIntentStatusRequiresCapture,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction:
		return StatusAuthorized
	default:
		return StatusFailed
	}
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

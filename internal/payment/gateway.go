package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the processor's lifecycle stage for a charge.
type SettlementStatus string

const (
	StatusAuthorized SettlementStatus = "authorized"
	StatusSettling   SettlementStatus = "settling"
	StatusSettled    SettlementStatus = "settled"
	StatusVoided     SettlementStatus = "voided"
	StatusFailed     SettlementStatus = "failed"
)

// Refundable reports whether money has moved far enough that the charge must
// be refunded instead of voided.
func (s SettlementStatus) Refundable() bool {
	return s == StatusSettled || s == StatusSettling
}

type SaleRequest struct {
	// Reference makes the sale idempotent at the processor. The pre-generated
	// order id is used.
	Reference  string
	Amount     decimal.Decimal
	Credential string
	Metadata   map[string]string
}

// SaleResult reports the processor's answer. A decline is a result with
// Success false, not an error.
type SaleResult struct {
	Success       bool
	TransactionID string
	CreatedAt     time.Time
	Message       string
}

type TransactionStatus struct {
	TransactionID string
	Status        SettlementStatus
	Amount        decimal.Decimal
}

// Result describes a refund or void issued by the processor.
type Result struct {
	TransactionID string
	CreatedAt     time.Time
	Amount        decimal.Decimal
}

// Gateway is the narrow set of card processor operations the order workflows
// depend on.
type Gateway interface {
	Name() string
	Sale(ctx context.Context, req SaleRequest) (*SaleResult, error)
	Find(ctx context.Context, transactionID string) (*TransactionStatus, error)
	Refund(ctx context.Context, transactionID string) (*Result, error)
	Void(ctx context.Context, transactionID string) (*Result, error)
}

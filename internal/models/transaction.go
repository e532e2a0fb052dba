package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionRefund TransactionType = "refund"
	TransactionVoid   TransactionType = "void"
)

type Transaction struct {
	bun.BaseModel `bun:"table:transactions"`

	ID                     string          `bun:"id,pk" json:"id"`
	OrderID                string          `bun:"order_id,notnull" json:"orderId"`
	Processor              string          `bun:"processor,notnull" json:"processor"`
	ProcessorTransactionID string          `bun:"processor_transaction_id,notnull" json:"processorTransactionId"`
	ProcessorCreatedAt     time.Time       `bun:"processor_created_at" json:"processorCreatedAt"`
	Type                   TransactionType `bun:"type,notnull" json:"type"`
	Amount                 decimal.Decimal `bun:"amount,type:numeric(12,2),notnull" json:"amount"`
	ParentTransactionID    string          `bun:"parent_transaction_id,nullzero" json:"parentTransactionId,omitempty"`
	Created                time.Time       `bun:"created,notnull,default:current_timestamp" json:"created"`
}

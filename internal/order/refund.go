package order

import (
	"context"
	"fmt"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
	"ms-boxoffice/internal/payment"

	"github.com/google/uuid"
)

// RefundOrder reverses the sale of a complete order, cancels it and archives
// its guests. Once the processor has reversed the charge, failures to record
// that locally are logged and the refund is still reported as done.
func (s *OrderService) RefundOrder(ctx context.Context, orderID, updatedBy string) (*models.Order, error) {
	order, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderComplete {
		return nil, apperr.Newf(apperr.RefundNotAllowed, "order %s is %s and cannot be refunded", orderID, order.Status).
			WithContext(order)
	}

	sale, err := s.DB.SaleTransaction(ctx, orderID)
	if err != nil {
		return nil, err
	}

	reversal, err := payment.RefundOrVoid(ctx, s.Gateway, sale.ProcessorTransactionID)
	if err != nil {
		s.Log.LogPayment("REVERSE", orderID, err.Error())
		return nil, err
	}
	s.Log.LogPayment("REVERSE", orderID, fmt.Sprintf("%s %s", reversal.Type, reversal.Result.TransactionID))

	now := s.Now()
	amount := reversal.Result.Amount
	if amount.IsZero() {
		amount = sale.Amount
	}
	txn := &models.Transaction{
		ID:                     uuid.NewString(),
		OrderID:                orderID,
		Processor:              s.Gateway.Name(),
		ProcessorTransactionID: reversal.Result.TransactionID,
		ProcessorCreatedAt:     reversal.Result.CreatedAt,
		Type:                   reversal.Type,
		Amount:                 amount,
		ParentTransactionID:    sale.ID,
		Created:                now,
	}
	if err := s.DB.RecordReversal(context.WithoutCancel(ctx), orderID, txn, updatedBy, now); err != nil {
		s.Log.LogReconcile(orderID, txn.ProcessorTransactionID, fmt.Errorf("record %s: %w", txn.Type, err))
	}

	order.Status = models.OrderCanceled
	order.Updated = now
	if s.Kafka != nil {
		s.detach(ctx, "order.refunded event", orderID, func(ctx context.Context) error {
			return s.Kafka.PublishOrderRefunded(ctx, order)
		})
	}

	s.Log.LogOrder("REFUND", orderID, fmt.Sprintf("canceled by %s", updatedBy))
	return order, nil
}

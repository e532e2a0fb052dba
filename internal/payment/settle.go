package payment

import (
	"context"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"
)

// Reversal is the outcome of RefundOrVoid.
type Reversal struct {
	Type   models.TransactionType
	Result *Result
}

// RefundOrVoid reverses a sale. It asks the processor for the settlement state
// and issues exactly one of refund or void. A charge that is already voided or
// failed, or a void rejected because the charge settled in between, surfaces
// as PROCESSOR_ERROR.
func RefundOrVoid(ctx context.Context, gw Gateway, saleTransactionID string) (*Reversal, error) {
	status, err := gw.Find(ctx, saleTransactionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ProcessorError, "could not look up transaction", err)
	}

	switch {
	case status.Status.Refundable():
		res, err := gw.Refund(ctx, saleTransactionID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ProcessorError, "refund failed", err)
		}
		return &Reversal{Type: models.TransactionRefund, Result: res}, nil
	case status.Status == StatusAuthorized:
		res, err := gw.Void(ctx, saleTransactionID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ProcessorError, "void failed", err)
		}
		return &Reversal{Type: models.TransactionVoid, Result: res}, nil
	default:
		return nil, apperr.Newf(apperr.ProcessorError, "transaction %s cannot be reversed from status %s", saleTransactionID, status.Status)
	}
}

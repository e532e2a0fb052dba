package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Sale(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SaleResult), args.Error(1)
}

func (m *MockGateway) Find(ctx context.Context, id string) (*TransactionStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransactionStatus), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, id string) (*Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockGateway) Void(ctx context.Context, id string) (*Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func TestRefundOrVoidChoosesExactlyOne(t *testing.T) {
	tests := []struct {
		status   SettlementStatus
		wantType models.TransactionType
	}{
		{StatusSettled, models.TransactionRefund},
		{StatusSettling, models.TransactionRefund},
		{StatusAuthorized, models.TransactionVoid},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			gw := new(MockGateway)
			ctx := context.Background()
			res := &Result{TransactionID: "rev_1", CreatedAt: time.Now(), Amount: decimal.NewFromInt(100)}

			gw.On("Find", ctx, "pi_1").Return(&TransactionStatus{TransactionID: "pi_1", Status: tt.status}, nil)
			if tt.wantType == models.TransactionRefund {
				gw.On("Refund", ctx, "pi_1").Return(res, nil)
			} else {
				gw.On("Void", ctx, "pi_1").Return(res, nil)
			}

			rev, err := RefundOrVoid(ctx, gw, "pi_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, rev.Type)
			assert.Equal(t, "rev_1", rev.Result.TransactionID)

			gw.AssertExpectations(t)
			if tt.wantType == models.TransactionRefund {
				gw.AssertNotCalled(t, "Void", mock.Anything, mock.Anything)
			} else {
				gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRefundOrVoidSurfacesProcessorErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("find fails", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Find", ctx, "pi_1").Return(nil, errors.New("timeout"))

		_, err := RefundOrVoid(ctx, gw, "pi_1")
		assert.True(t, apperr.Is(err, apperr.ProcessorError))
	})

	t.Run("void rejected after settlement", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Find", ctx, "pi_1").Return(&TransactionStatus{Status: StatusAuthorized}, nil)
		gw.On("Void", ctx, "pi_1").Return(nil, errors.New("payment_intent_unexpected_state"))

		_, err := RefundOrVoid(ctx, gw, "pi_1")
		assert.True(t, apperr.Is(err, apperr.ProcessorError))
		gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	})

	t.Run("already voided", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Find", ctx, "pi_1").Return(&TransactionStatus{Status: StatusVoided}, nil)

		_, err := RefundOrVoid(ctx, gw, "pi_1")
		assert.True(t, apperr.Is(err, apperr.ProcessorError))
		gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
		gw.AssertNotCalled(t, "Void", mock.Anything, mock.Anything)
	})
}

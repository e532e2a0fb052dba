package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{Invalid, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{NotFound, http.StatusNotFound},
		{TicketNotFound, http.StatusNotFound},
		{GuestAlreadyCheckedIn, http.StatusConflict},
		{Gone, http.StatusGone},
		{EventNotActive, http.StatusGone},
		{EventNotStarted, http.StatusPreconditionFailed},
		{GuestNotActive, http.StatusLocked},
		{ProcessorError, http.StatusBadGateway},
		{Unknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(New(tt.code, "x")))
		})
	}
}

func TestCodeOfWrapped(t *testing.T) {
	base := New(NotPermitted, "order canceled")
	wrapped := fmt.Errorf("transfer: %w", base)

	assert.Equal(t, NotPermitted, CodeOf(wrapped))
	assert.True(t, Is(wrapped, NotPermitted))
	assert.False(t, Is(wrapped, NotFound))
	assert.Equal(t, Unknown, CodeOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("card_declined")
	err := Wrap(PaymentDeclined, "payment declined", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PAYMENT_DECLINED")
}

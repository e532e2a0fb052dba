package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure so callers can render a specific message.
type Code string

const (
	Invalid               Code = "INVALID"
	Unauthorized          Code = "UNAUTHORIZED"
	NotFound              Code = "NOT_FOUND"
	Gone                  Code = "GONE"
	PaymentDeclined       Code = "PAYMENT_DECLINED"
	Unknown               Code = "UNKNOWN"
	RefundNotAllowed      Code = "REFUND_NOT_ALLOWED"
	NotPermitted          Code = "NOT_PERMITTED"
	ProcessorError        Code = "PROCESSOR_ERROR"
	TicketNotFound        Code = "TICKET_NOT_FOUND"
	GuestAlreadyCheckedIn Code = "GUEST_ALREADY_CHECKED_IN"
	GuestNotActive        Code = "GUEST_NOT_ACTIVE"
	EventNotActive        Code = "EVENT_NOT_ACTIVE"
	EventNotStarted       Code = "EVENT_NOT_STARTED"
)

// Error is a domain error carrying a code, a public message and an optional
// snapshot of the entities involved (guest, event, order).
type Error struct {
	Code    Code
	Message string
	Context any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithContext attaches a snapshot for UI rendering and returns the same error.
func (e *Error) WithContext(ctx any) *Error {
	e.Context = ctx
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// HTTPStatus maps an error to the status code the HTTP surface returns.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case Invalid:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case PaymentDeclined:
		return http.StatusPaymentRequired
	case NotFound, TicketNotFound:
		return http.StatusNotFound
	case GuestAlreadyCheckedIn, RefundNotAllowed, NotPermitted:
		return http.StatusConflict
	case Gone, EventNotActive:
		return http.StatusGone
	case EventNotStarted:
		return http.StatusPreconditionFailed
	case GuestNotActive:
		return http.StatusLocked
	case ProcessorError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

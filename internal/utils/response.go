package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ms-boxoffice/internal/apperr"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error   string      `json:"error"`
	Code    apperr.Code `json:"code"`
	Context any         `json:"context,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err with the status its code maps to. Errors without a
// code are reported as UNKNOWN and their text is not exposed.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, apperr.HTTPStatus(err), err)
}

func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	body := ErrorBody{Code: apperr.Unknown, Error: "internal error"}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Error = appErr.Message
		body.Context = appErr.Context
	}

	WriteJSON(w, status, body)
}

// DecodeJSON reads a JSON request body into v. Unknown fields are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.Invalid, "invalid request body", err)
	}
	return nil
}

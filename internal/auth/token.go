package auth

import (
	"net/http"
	"strings"

	"ms-boxoffice/internal/apperr"
)

// BearerToken extracts the token from an "Authorization: Bearer {token}"
// header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apperr.New(apperr.Unauthorized, "missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperr.New(apperr.Unauthorized, "authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

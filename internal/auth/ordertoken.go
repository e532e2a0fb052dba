package auth

import (
	"errors"
	"fmt"
	"time"

	"ms-boxoffice/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// OrderTokens issues and verifies the bearer token handed to a purchaser so
// they can fetch their tickets without an account. The subject is the order
// id and the token does not expire.
type OrderTokens struct {
	secret   []byte
	issuer   string
	audience string
}

func NewOrderTokens(secret, issuer, audience string) *OrderTokens {
	return &OrderTokens{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (o *OrderTokens) Issue(orderID string, issuedAt time.Time) (string, error) {
	if len(o.secret) == 0 {
		return "", errors.New("order token secret not configured")
	}

	claims := jwt.RegisteredClaims{
		Issuer:   o.issuer,
		Subject:  orderID,
		Audience: jwt.ClaimStrings{o.audience},
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
	if err != nil {
		return "", fmt.Errorf("sign order token: %w", err)
	}
	return signed, nil
}

// Verify returns the order id the token was issued for.
func (o *OrderTokens) Verify(rawToken string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (any, error) {
		return o.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(o.issuer),
		jwt.WithAudience(o.audience),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, "invalid order token", err)
	}
	if claims.Subject == "" {
		return "", apperr.New(apperr.Unauthorized, "order token has no subject")
	}
	return claims.Subject, nil
}

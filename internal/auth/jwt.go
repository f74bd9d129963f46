// Package auth validates the access tokens issued to callers. Sign-in itself
// happens outside this service; a token's subject is the caller's user id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidIssuer is returned for a well-signed token from another issuer.
var ErrInvalidIssuer = errors.New("invalid token issuer")

// Provider signs and validates HS256 access tokens.
type Provider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewProvider creates a token provider.
func NewProvider(secret, issuer string, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issuer returns the expected token issuer.
func (p *Provider) Issuer() string {
	return p.issuer
}

// GenerateToken signs an access token for userID with the default lifetime.
func (p *Provider) GenerateToken(userID uuid.UUID) (string, error) {
	return p.GenerateTokenWithDuration(userID, p.ttl)
}

// GenerateTokenWithDuration signs an access token valid for d. A negative d
// yields an already expired token.
func (p *Provider) GenerateTokenWithDuration(userID uuid.UUID, d time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Subject:   userID.String(),
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns the id of the user it was issued to.
func (p *Provider) Validate(encoded string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(encoded, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid access token")
	}
	if !claims.VerifyIssuer(p.issuer, true) {
		return uuid.Nil, ErrInvalidIssuer
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}
	return id, nil
}

// Package auth resolves bearer tokens to principal emails.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// ErrInvalidToken is returned for tokens no verifier accepts.
var ErrInvalidToken = errors.New("invalid token")

// Verifier maps a bearer token to the email of the principal it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier accepts a fixed set of API tokens.
type StaticVerifier struct {
	tokens map[[sha256.Size]byte]string
}

// NewStaticVerifier creates a verifier from a token to email map.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	hashed := make(map[[sha256.Size]byte]string, len(tokens))
	for token, email := range tokens {
		hashed[sha256.Sum256([]byte(token))] = email
	}
	return &StaticVerifier{tokens: hashed}
}

// Verify returns the email bound to token.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	for known, email := range v.tokens {
		if subtle.ConstantTimeCompare(sum[:], known[:]) == 1 {
			return email, nil
		}
	}
	return "", ErrInvalidToken
}

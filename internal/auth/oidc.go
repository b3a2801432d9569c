package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier accepts bearer ID tokens issued by an OIDC provider.
type OIDCVerifier struct {
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// OIDCClaims represents the claims from an ID token.
type OIDCClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewOIDCVerifier creates a verifier using provider discovery on issuerURL.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string, allowedDomains []string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return NewOIDCVerifierFrom(provider.Verifier(&oidc.Config{ClientID: clientID}), allowedDomains), nil
}

// NewOIDCVerifierFrom wraps an existing ID token verifier.
func NewOIDCVerifierFrom(verifier *oidc.IDTokenVerifier, allowedDomains []string) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier, allowedDomains: allowedDomains}
}

// Verify checks the ID token and returns the principal's email. Every failure wraps
// ErrInvalidToken.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (string, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("%w: decoding claims: %v", ErrInvalidToken, err)
	}
	if err := v.ValidateClaims(&claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Email, nil
}

// ValidateClaims requires an email whose domain is in the allow list, when one is set.
func (v *OIDCVerifier) ValidateClaims(claims *OIDCClaims) error {
	if claims.Email == "" {
		return fmt.Errorf("email claim is required")
	}
	if len(v.allowedDomains) == 0 {
		return nil
	}

	_, emailDomain, ok := strings.Cut(claims.Email, "@")
	if !ok || emailDomain == "" || strings.Contains(emailDomain, "@") {
		return fmt.Errorf("malformed email %q", claims.Email)
	}
	if !slices.ContainsFunc(v.allowedDomains, func(d string) bool {
		return strings.EqualFold(d, emailDomain)
	}) {
		return fmt.Errorf("email domain %s is not allowed", emailDomain)
	}
	return nil
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bcnelson/console-cache/internal/auth"
	"github.com/bcnelson/console-cache/internal/domain"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

// PrincipalResolver looks up the user behind a verified email.
type PrincipalResolver interface {
	GetOrFetchUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Auth creates authentication middleware. The bearer token is verified, then resolved
// to a user that is stored in the request context.
func Auth(verifier auth.Verifier, users PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				http.Error(w, `{"code":401,"message":"empty token"}`, http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			email, err := verifier.Verify(ctx, token)
			if err != nil {
				http.Error(w, `{"code":401,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			user, err := users.GetOrFetchUserByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					http.Error(w, `{"code":401,"message":"unknown principal"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"code":502,"message":"resolving principal failed"}`, http.StatusBadGateway)
				return
			}
			if user.State == domain.StateDeleted {
				http.Error(w, `{"code":403,"message":"principal is deactivated"}`, http.StatusForbidden)
				return
			}

			ctx = context.WithValue(ctx, PrincipalContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal retrieves the authenticated user from the request context.
// It returns the unknown user placeholder when none is set.
func GetPrincipal(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(PrincipalContextKey).(*domain.User); ok {
		return user
	}
	return domain.UnknownUser()
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// TokenVerifier validates a token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// bearerToken extracts the token from an Authorization header, or ""
// when the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// resolveUser verifies an access token and loads the account it names.
func resolveUser(ctx context.Context, verifier TokenVerifier, users storage.UserStore, token string) (*types.User, error) {
	subject, err := verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := users.GetUserByUsername(ctx, subject)
	if err != nil {
		// A valid token for a deleted account is treated like a bad token.
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.New("unknown token subject")
		}
		return nil, err
	}
	return user, nil
}

// RequireAuth enforces Bearer access-token authentication and attaches
// the resolved user to the request context.
func RequireAuth(next http.Handler, verifier TokenVerifier, users storage.UserStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := resolveUser(r.Context(), verifier, users, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RateLimiter wraps a rate.Limiter for HTTP middleware.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter with a sustained rate and burst size.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// RateLimitMiddleware rejects requests beyond the configured rate.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersMiddleware adds standard security headers to responses.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

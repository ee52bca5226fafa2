package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
	"golang.org/x/time/rate"
)

// RequireAuth gates a handler behind Bearer-token authentication. In
// development mode every request passes; in production the Authorization
// header must carry the configured API token.
func RequireAuth(next http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Security.SecurityMode == "development" {
			next.ServeHTTP(w, r)
			return
		}

		// A server without a configured token accepts nobody
		expected := cfg.Security.APIToken
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if expected == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimiter applies a single token bucket to all incoming requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter that sustains reqPerSec with the given
// burst headroom.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst)}
}

// RateLimitMiddleware rejects requests the shared limiter will not
// admit with 429 Too Many Requests.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

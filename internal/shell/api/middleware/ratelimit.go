package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/nestling/nestling/internal/core/auth"
	"github.com/nestling/nestling/internal/core/ratelimit"
)

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimit limits requests per caller. Authenticated callers are keyed by a
// hash of their token, anonymous callers by remote address. A nil limiter
// disables limiting.
func RateLimit(limiter *ratelimit.KeyLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := limitKey(r)
			if !limiter.Allow(key, time.Now()) {
				logger.Warn("rate limit exceeded",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				WriteJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitKey derives the bucket key for a request. Tokens are hashed so raw
// credentials never sit in the limiter map.
func limitKey(r *http.Request) string {
	ctx := auth.FromContext(r.Context())
	if ctx.Authenticated {
		sum := sha256.Sum256([]byte(ctx.Token))
		return "tok:" + hex.EncodeToString(sum[:8])
	}
	return "ip:" + r.RemoteAddr
}

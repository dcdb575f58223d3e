package middleware

import (
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/ratelimit"
)

// Admitter is the part of *ratelimit.Limiter the middleware needs.
type Admitter interface {
	Admit(id string) ratelimit.Decision
	Config() ratelimit.Config
}

// RateLimit admits each request against a sliding window keyed by the peer
// address. Denied requests get 429 and a Retry-After header.
// Mount after chi's RealIP so proxied clients are keyed by their own address.
func RateLimit(l Admitter, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := l.Config()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			d := l.Admit(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				logger.Info("rate limit exceeded",
					zap.String("client", key),
					zap.Int("retry_after", d.RetryAfter))
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
				apierror.Write(w, apierror.RateLimited(cfg.MaxRequests, cfg.Window.Milliseconds(), d.RetryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey returns the host part of RemoteAddr, or RemoteAddr itself when
// it carries no port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

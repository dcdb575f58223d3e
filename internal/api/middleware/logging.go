package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
)

// RequestLogger logs one structured line per request after it completes.
// Credentials are never logged; only the authenticated method and the
// session-bound location, when Authenticate ran further down the chain.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			info := &requestInfo{}
			if id := chimw.GetReqID(r.Context()); id != "" {
				ww.Header().Set(chimw.RequestIDHeader, id)
			}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("remote", ClientKey(r)),
			}
			if info.authenticated {
				fields = append(fields, zap.String("auth_method", string(info.method)))
				if info.locationID != "" {
					fields = append(fields, zap.String("location_id", info.locationID))
				}
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}

type requestInfoKey struct{}

// requestInfo is filled in by Authenticate so the outer logger can see who
// made the request. Both run on the request goroutine.
type requestInfo struct {
	authenticated bool
	method        auth.Method
	locationID    string
}

func noteIdentity(ctx context.Context, id auth.Identity) {
	info, ok := ctx.Value(requestInfoKey{}).(*requestInfo)
	if !ok {
		return
	}
	info.authenticated = true
	info.method = id.Method
	info.locationID = id.LocationID
}

package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
)

// Authenticate resolves the caller identity and stores it in the request
// context. Requests without usable material get 401; malformed raw
// credentials get 400. The handler chain is not entered in either case.
//
// Flow:
//  1. Run the authenticator's strategy chain (session token, X-Api-Key, Bearer)
//  2. Map a failure onto the JSON error envelope and stop
//  3. Inject ctxkeys.Identity (and the bound location, if any)
//  4. Call next handler
func Authenticate(a *auth.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				apiErr := apierror.From(err)
				logger.Debug("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("kind", string(apiErr.Kind)))
				apierror.Write(w, apiErr)
				return
			}

			noteIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithIdentity(r.Context(), id)))
		})
	}
}

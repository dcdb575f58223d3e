// Package ctxkeys holds the request context keys shared by middleware and
// handlers. It is a leaf package so both can import it without a cycle.
package ctxkeys

import (
	"context"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
)

// Key is the named type for all API context keys. context.Value compares
// type and value, so these never collide with plain string keys.
type Key string

// Identity holds the auth.Identity resolved by the auth middleware.
const Identity Key = "identity"

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, Identity, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(Identity).(auth.Identity)
	return id, ok
}

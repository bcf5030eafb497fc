package auth

import "context"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   int64
	Username string
}

type ctxKeyIdentity struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	if !ok || v.UserID <= 0 {
		return Identity{}, false
	}
	return v, true
}

// WithIdentity injects an identity into context. Useful for testing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

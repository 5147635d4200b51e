package model

import "context"

// Identity is the caller resolved from a verified bearer token.
// It is rebuilt on every request and never stored.
type Identity struct {
	UserID int  `json:"user_id"`
	Role   Role `json:"role"`
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

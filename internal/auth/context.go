package auth

import "context"

type ctxKey int

const (
	ctxPrincipal ctxKey = iota
	ctxTokenID
)

// WithPrincipal attaches the authenticated principal to ctx.
// The principal is copied so later changes to p do not leak into the request.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, &p)
}

// PrincipalFrom returns the request principal, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, ok := ctx.Value(ctxPrincipal).(*Principal)
	if !ok || p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// WithTokenID stores the access token jti so logout can revoke it.
func WithTokenID(ctx context.Context, jti string) context.Context {
	if jti == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxTokenID, jti)
}

func TokenID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxTokenID).(string)
	return v, ok && v != ""
}

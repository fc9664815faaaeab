package domain

import "context"

// Principal is the identity established for a single request after its bearer
// token has been validated. It lives only in that request's context.
type Principal struct {
	Username string
	Role     string
}

// HasRole reports whether the principal carries exactly the given role.
func (p Principal) HasRole(role string) bool {
	return p.Role == role
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

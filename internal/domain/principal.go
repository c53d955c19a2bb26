package domain

import "context"

// Principal is the authenticated caller, supplied by the identity layer.
type Principal struct {
	OwnerID   string
	Role      Role
	RequestID string
}

// Role of an authenticated caller.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// CanOperate reports whether the role may manage accounts and post deposits.
func (r Role) CanOperate() bool {
	return r == RoleOperator || r == RoleAdmin
}

type principalKey struct{}

// ContextWithPrincipal attaches the caller to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthorizeOwner fails with ErrForbidden when the caller is a customer other
// than ownerID. Operators and calls without a principal pass.
func AuthorizeOwner(ctx context.Context, ownerID string) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Role.CanOperate() || p.OwnerID == ownerID {
		return nil
	}

	return ErrForbidden
}

// IsCustomer reports whether ctx carries a customer principal.
func IsCustomer(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && !p.Role.CanOperate()
}

package auth

import "context"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleTrainer  Role = "trainer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller of a service operation.
type Principal struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTrainer() bool { return p.Role == RoleTrainer }

// Owns reports whether p may act on a record belonging to userID.
func (p Principal) Owns(userID uint) bool {
	return p.IsAdmin() || (p.ID != 0 && p.ID == userID)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

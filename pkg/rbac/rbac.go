// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/middleware"
	"github.com/fitforge/fitforge/pkg/response"
)

// HasRole allows the request through only when the authenticated caller has
// one of roles. Mount it after middleware.AuthMiddleware.
func HasRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is HasRole(auth.RoleAdmin).
func Admin(next http.Handler) http.Handler {
	return HasRole(auth.RoleAdmin)(next)
}

// Staff admits trainers and admins.
func Staff(next http.Handler) http.Handler {
	return HasRole(auth.RoleTrainer, auth.RoleAdmin)(next)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/response"
)

// bearerToken reads the token from the Authorization header, falling back to
// the ?token= query parameter which browsers must use for websockets.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// AuthMiddleware rejects requests without a valid access token and stores
// the caller's principal in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		p := claims.Principal()
		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", p.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromCtx returns the authenticated user's ID.
func UserIDFromCtx(r *http.Request) (uint, bool) {
	p, ok := auth.FromContext(r.Context())
	return p.ID, ok
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (auth.Role, bool) {
	p, ok := auth.FromContext(r.Context())
	return p.Role, ok
}

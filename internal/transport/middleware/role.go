package middleware

import (
	"net/http"

	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

// RequireRole gates a route group on a minimum role. The services enforce
// the same rule; this just fails fast before a body is parsed.
func RequireRole(min rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.UserFromContext(r.Context())
			if !ok || principal == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !rbac.AtLeast(principal.Role, min) {
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates a route group on the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(rbac.RoleAdmin)
}

package middleware

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
)

// RequireSuperAdmin ensures the authenticated user is a super admin
func RequireSuperAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.Role{domain.RoleSuperAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !slices.Contains(allowedRoles, role) {
				userID, _ := GetUserID(r.Context())
				email, _ := GetUserEmail(r.Context())
				logger.Warn("User role not authorized",
					zap.String("user_id", userID),
					zap.String("email", email),
					zap.String("role", string(role)),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

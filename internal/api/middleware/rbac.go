package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/api/metrics"
	"github.com/hirelane/portal/internal/core/domain"
)

// RoleGuard enforces role-based access control. It assumes SessionGuard ran
// first; a user whose role is not allowed is sent to landing.
func RoleGuard(landing string, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tab := TabFrom(c)
			if tab == nil || !tab.Session.Snapshot().HasRole(allowedRoles...) {
				metrics.GuardDenialsTotal.WithLabelValues("role", "forbidden_role").Inc()
				if WantsJSON(c) {
					return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
				}
				return c.Redirect(http.StatusSeeOther, landing)
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/api/metrics"
)

const loadingRetryAfter = "1"

const loadingPage = `<!doctype html>
<html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading…</p></body></html>`

// SessionGuard lets the request through only when the tab has a logged-in
// session. While the session is still restoring it answers 202 with a
// loading view so no protected content is rendered early; without a session
// it redirects to loginPath. Redirects use 303 so the guarded URL is replaced
// rather than kept as a history entry.
func SessionGuard(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tab := TabFrom(c)
			if tab == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "tab middleware not installed")
			}

			snap := tab.Session.Snapshot()
			switch {
			case snap.Loading():
				metrics.GuardDenialsTotal.WithLabelValues("session", "loading").Inc()
				c.Response().Header().Set("Retry-After", loadingRetryAfter)
				if WantsJSON(c) {
					return c.JSON(http.StatusAccepted, map[string]string{"status": "loading"})
				}
				return c.HTML(http.StatusAccepted, loadingPage)
			case !snap.Authenticated():
				metrics.GuardDenialsTotal.WithLabelValues("session", "unauthenticated").Inc()
				if WantsJSON(c) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				}
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			return next(c)
		}
	}
}

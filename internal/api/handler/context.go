package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/api/middleware"
	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/service"
)

// ctxTab returns the tab attached by the Tab middleware. A missing tab means
// the route was registered without it, which is a wiring bug.
func ctxTab(c echo.Context) (*service.Tab, error) {
	tab := middleware.TabFrom(c)
	if tab == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "missing tab context")
	}
	return tab, nil
}

// ctxUser returns the logged-in user of the tab. Guarded routes only.
func ctxUser(c echo.Context) (*service.Tab, *domain.User, error) {
	tab, err := ctxTab(c)
	if err != nil {
		return nil, nil, err
	}
	snap := tab.Session.Snapshot()
	if !snap.Authenticated() {
		return nil, nil, domain.ErrNotAuthenticated
	}
	return tab, snap.User, nil
}

// dashboardPath is the landing page of each role.
func dashboardPath(role domain.Role) string {
	switch role {
	case domain.RoleCandidate:
		return "/candidate/dashboard"
	case domain.RoleHR:
		return "/hr/dashboard"
	case domain.RoleAdmin:
		return "/admin/dashboard"
	default:
		return "/login"
	}
}

// redirectOr answers scripts with status and body and page navigations with
// a 303 to location.
func redirectOr(c echo.Context, location string, status int, body any) error {
	if middleware.WantsJSON(c) {
		if body == nil {
			return c.NoContent(status)
		}
		return c.JSON(status, body)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

// passThrough relays a backend payload untouched.
func passThrough(c echo.Context, status int, raw []byte) error {
	if len(raw) == 0 {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSONBlob(status, raw)
}

// bindAndValidate decodes the request into req (JSON or form) and runs the
// validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

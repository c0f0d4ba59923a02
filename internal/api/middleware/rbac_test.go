package middleware

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/core/domain"
)

func TestRoleGuard_Allows(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/admin/dashboard")
	SetTab(c, loggedInTab(t, domain.RoleAdmin))

	called := false
	if err := RoleGuard("/", domain.RoleAdmin, domain.RoleHR)(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRoleGuard_RedirectsToLanding(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/admin/dashboard")
	SetTab(c, loggedInTab(t, domain.RoleCandidate))

	called := false
	_ = RoleGuard("/", domain.RoleAdmin)(okHandler(&called))(c)
	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestRoleGuard_ForbidsJSONCaller(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/hr/candidates")
	c.Request().Header.Set(echo.HeaderXRequestedWith, "XMLHttpRequest")
	SetTab(c, loggedInTab(t, domain.RoleCandidate))

	called := false
	_ = RoleGuard("/", domain.RoleHR)(okHandler(&called))(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/service"
	"github.com/hirelane/portal/internal/infrastructure/tokenstore"
)

func loadingTab() *service.Tab {
	return &service.Tab{Session: service.NewSession("tab", tokenstore.NewMemory().Slot("tab"))}
}

func loggedOutTab(t *testing.T) *service.Tab {
	t.Helper()
	tab := loadingTab()
	if err := tab.Session.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	return tab
}

func loggedInTab(t *testing.T, role domain.Role) *service.Tab {
	t.Helper()
	tab := loadingTab()
	user := domain.User{ID: "1", Username: "ann", Role: role}
	if err := tab.Session.Login(context.Background(), user, "tok"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return tab
}

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}

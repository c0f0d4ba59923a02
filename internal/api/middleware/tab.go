package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/api/metrics"
	"github.com/hirelane/portal/internal/core/service"
)

const (
	// TabCookie carries the tab id for page navigations.
	TabCookie = "portal_tab"
	// TabHeader lets scripts running in a tab name it explicitly; it wins
	// over the cookie, which every tab of a browser shares.
	TabHeader = "X-Tab-ID"
)

// TabRegistry is the part of service.Registry the middleware needs.
type TabRegistry interface {
	Open(tabID string) *service.Tab
	Len() int
}

// TabConfig configures the tab cookie.
type TabConfig struct {
	Secure bool
	MaxAge time.Duration
}

// Tab resolves the tab id of the request, minting one on first contact,
// and attaches the tab's session to the context.
func Tab(registry TabRegistry, cfg TabConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tabID, fromHeader := requestTabID(c)
			if tabID == "" {
				tabID = uuid.NewString()
			}
			if !fromHeader {
				setTabCookie(c, tabID, cfg)
			}
			c.Response().Header().Set(TabHeader, tabID)

			SetTab(c, registry.Open(tabID))
			metrics.OpenTabs.Set(float64(registry.Len()))
			return next(c)
		}
	}
}

func requestTabID(c echo.Context) (string, bool) {
	if id, ok := parseTabID(c.Request().Header.Get(TabHeader)); ok {
		return id, true
	}
	if cookie, err := c.Cookie(TabCookie); err == nil {
		if id, ok := parseTabID(cookie.Value); ok {
			return id, false
		}
	}
	return "", false
}

// parseTabID accepts only uuids, so a client cannot pick arbitrary storage
// keys.
func parseTabID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func setTabCookie(c echo.Context, tabID string, cfg TabConfig) {
	cookie := &http.Cookie{
		Name:     TabCookie,
		Value:    tabID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.MaxAge > 0 {
		cookie.MaxAge = int(cfg.MaxAge.Seconds())
	}
	c.SetCookie(cookie)
}

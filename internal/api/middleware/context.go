package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/core/service"
)

const tabContextKey = "portal.tab"

// SetTab attaches tab to the request context.
func SetTab(c echo.Context, tab *service.Tab) {
	c.Set(tabContextKey, tab)
}

// TabFrom returns the tab attached by the Tab middleware, or nil.
func TabFrom(c echo.Context) *service.Tab {
	tab, _ := c.Get(tabContextKey).(*service.Tab)
	return tab
}

// WantsJSON reports whether the caller is a script rather than a page
// navigation. Scripts get status codes where browsers get redirects.
func WantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.EqualFold(req.Header.Get(echo.HeaderXRequestedWith), "XMLHttpRequest") {
		return true
	}
	accept := req.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/core/ports"
)

const (
	maxResumeSize      = 10 << 20
	defaultEventsLimit = 50
)

// DashboardHandler serves the role-gated views. Everything it shows comes
// from the tab's bound backends, except the audit trail.
type DashboardHandler struct {
	events ports.SessionEventRepository
}

// NewDashboardHandler creates a DashboardHandler. events may be nil when the
// audit trail is disabled.
func NewDashboardHandler(events ports.SessionEventRepository) *DashboardHandler {
	return &DashboardHandler{events: events}
}

func (h *DashboardHandler) CandidateDashboard(c echo.Context) error {
	tab, user, err := ctxUser(c)
	if err != nil {
		return err
	}
	apps, err := tab.Backends.Candidates.ListApplications(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewResponse{View: "candidate_dashboard", User: user, Data: apps})
}

// UploadResume forwards the "file" part of a multipart form to the candidate
// service.
func (h *DashboardHandler) UploadResume(c echo.Context) error {
	tab, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxResumeSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 10 MiB")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	out, err := tab.Backends.Candidates.UploadResume(c.Request().Context(), fh.Filename, f)
	if err != nil {
		return err
	}
	return passThrough(c, http.StatusCreated, out)
}

func (h *DashboardHandler) HRDashboard(c echo.Context) error {
	_, user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewResponse{View: "hr_dashboard", User: user})
}

func (h *DashboardHandler) ListCandidates(c echo.Context) error {
	tab, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	out, err := tab.Backends.HR.ListCandidates(c.Request().Context())
	if err != nil {
		return err
	}
	return passThrough(c, http.StatusOK, out)
}

func (h *DashboardHandler) AdminDashboard(c echo.Context) error {
	_, user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewResponse{View: "admin_dashboard", User: user})
}

func (h *DashboardHandler) ListUsers(c echo.Context) error {
	tab, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	out, err := tab.Backends.Admin.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return passThrough(c, http.StatusOK, out)
}

// SessionEvents lists the newest session transitions.
// Query: ?limit=N (default 50).
func (h *DashboardHandler) SessionEvents(c echo.Context) error {
	if h.events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session audit trail is disabled")
	}

	limit := defaultEventsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	events, err := h.events.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

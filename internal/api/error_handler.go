package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/api/middleware"
	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

// errorResponse is the canonical error envelope for all portal errors.
// Detail carries the backend's JSON body when there was one.
type errorResponse struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders backend errors with the backend's status and message.
//   - Sends page navigations whose session expired back to the login page.
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(loginPath string, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if gateway.IsSessionExpired(err) && !middleware.WantsJSON(c) {
			_ = c.Redirect(http.StatusSeeOther, loginPath)
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Backend errors keep their message; network failures become 502.
	var ge *gateway.Error
	if errors.As(err, &ge) {
		switch ge.Kind {
		case gateway.KindNetwork:
			log.Warn().Err(ge.Err).Str("path", c.Path()).Msg("backend unreachable")
			return http.StatusBadGateway, errorResponse{Error: ge.Message}
		default:
			return ge.Status, errorResponse{Error: ge.Message, Detail: ge.Data}
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "not authenticated"}
	case errors.Is(err, domain.ErrUnknownRole):
		return http.StatusForbidden, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrStaleAttempt):
		return http.StatusConflict, errorResponse{Error: "login cancelled by logout"}
	case errors.Is(err, domain.ErrTooManyResetRequests):
		return http.StatusTooManyRequests, errorResponse{Error: "a reset link was sent recently"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadGateway, errorResponse{Error: "auth service returned no token"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

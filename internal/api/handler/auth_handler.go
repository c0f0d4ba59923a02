package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hirelane/portal/internal/api/middleware"
	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

const loginPath = "/login"

// AuthHandler serves the login, logout and account routes of a tab.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// LoginView renders the login form, or sends a logged-in tab home.
func (h *AuthHandler) LoginView(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}
	snap := tab.Session.Snapshot()
	if snap.Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, viewResponse{View: "login", Data: map[string]bool{"loading": snap.Loading()}})
}

// Login authenticates the tab and sends it to the user's dashboard.
func (h *AuthHandler) Login(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := tab.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if middleware.WantsJSON(c) {
			return err
		}
		return loginFailed(c, err)
	}

	target := dashboardPath(user.Role)
	return redirectOr(c, target, http.StatusOK, loginResponse{User: user, Redirect: target})
}

// Logout ends the tab's session.
func (h *AuthHandler) Logout(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}
	if err := tab.Auth.Logout(c.Request().Context()); err != nil {
		return err
	}
	return redirectOr(c, loginPath, http.StatusNoContent, nil)
}

// Register creates an account without logging it in.
func (h *AuthHandler) Register(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}

	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	reg := domain.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}
	if req.Role != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		reg.Role = role
	}

	user, err := tab.Auth.Register(c.Request().Context(), reg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// RequestPasswordReset asks the auth service to mail a reset link.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}

	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := tab.Auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, msg)
}

// ConfirmPasswordReset sets a new password from a reset token.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	tab, err := ctxTab(c)
	if err != nil {
		return err
	}

	var req resetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := tab.Auth.ConfirmPasswordReset(c.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msg)
}

// Home sends a logged-in tab to its role's dashboard.
func (h *AuthHandler) Home(c echo.Context) error {
	_, user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, dashboardPath(user.Role))
}

// Me renders the profile of the logged-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	_, user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewResponse{View: "profile", User: user})
}

// ChangePassword updates the logged-in user's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	tab, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := tab.Auth.ChangePassword(c.Request().Context(), domain.PasswordChange{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msg)
}


// loginFailed re-renders the login view with a message the page can show.
// Errors without a user-facing message go to the error handler.
func loginFailed(c echo.Context, err error) error {
	status, msg := 0, ""

	var ge *gateway.Error
	switch {
	case errors.As(err, &ge):
		status, msg = ge.Status, ge.Message
		if ge.Kind == gateway.KindNetwork || status == 0 {
			status = http.StatusBadGateway
		}
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUnknownRole):
		status, msg = http.StatusForbidden, "this account's role cannot use the portal"
	default:
		return err
	}
	return c.JSON(status, viewResponse{View: "login", Data: loginViewData{Error: msg}})
}

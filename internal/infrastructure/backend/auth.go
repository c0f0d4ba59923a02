package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

const (
	pathLogin        = "/auth/login"
	pathMe           = "/auth/me"
	pathRegister     = "/auth/register"
	pathPassword     = "/auth/users/me/password"
	pathResetRequest = "/auth/password-reset/request"
	pathResetConfirm = "/auth/password-reset/confirm"
)

// AuthClient implements ports.AuthAPI.
type AuthClient struct {
	c    *gateway.Client
	base string
}

func NewAuthClient(c *gateway.Client, base string) *AuthClient {
	return &AuthClient{c: c, base: base}
}

// Authenticate exchanges credentials for a token. The auth service expects
// an OAuth2 password form, not JSON.
func (a *AuthClient) Authenticate(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	form := url.Values{"username": {username}, "password": {password}}
	pair, err := gateway.RequestForm[domain.TokenPair](ctx, a.c, http.MethodPost, endpoint(a.base, pathLogin), form)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, domain.ErrInvalidToken
	}
	return pair, nil
}

// identity is the wire shape of a user. The role stays a plain string so an
// unrecognised role surfaces as ErrUnknownRole instead of a decode failure.
type identity struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Role     string        `json:"role"`
}

func (i *identity) user() (*domain.User, error) {
	role, err := domain.ParseRole(i.Role)
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: i.ID, Username: i.Username, Email: i.Email, Role: role}, nil
}

func (a *AuthClient) FetchIdentity(ctx context.Context) (*domain.User, error) {
	id, err := gateway.Request[identity](ctx, a.c, http.MethodGet, endpoint(a.base, pathMe), nil)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return id.user()
}

func (a *AuthClient) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	id, err := gateway.Request[identity](ctx, a.c, http.MethodPost, endpoint(a.base, pathRegister), reg)
	if err != nil || id == nil {
		return nil, err
	}
	return id.user()
}

func (a *AuthClient) ChangePassword(ctx context.Context, change domain.PasswordChange) (*domain.Message, error) {
	return gateway.Request[domain.Message](ctx, a.c, http.MethodPut, endpoint(a.base, pathPassword), change)
}

func (a *AuthClient) RequestPasswordReset(ctx context.Context, email string) (*domain.Message, error) {
	body := map[string]string{"email": email}
	return gateway.Request[domain.Message](ctx, a.c, http.MethodPost, endpoint(a.base, pathResetRequest), body)
}

func (a *AuthClient) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*domain.Message, error) {
	body := map[string]string{"token": token, "new_password": newPassword}
	return gateway.Request[domain.Message](ctx, a.c, http.MethodPost, endpoint(a.base, pathResetConfirm), body)
}

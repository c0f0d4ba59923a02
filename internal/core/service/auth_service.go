package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

// AuthService drives the login, restore and account flows of one session.
type AuthService struct {
	session  *Session
	api      ports.AuthAPI
	throttle ports.ResetThrottle
	log      zerolog.Logger
}

func NewAuthService(session *Session, api ports.AuthAPI, throttle ports.ResetThrottle, log zerolog.Logger) *AuthService {
	return &AuthService{session: session, api: api, throttle: throttle, log: log}
}

// Session returns the session the service operates on.
func (s *AuthService) Session() *Session { return s.session }

// Login exchanges credentials for a token, persists it, fetches the identity
// it authorises and finalises the session. The identity request reads the
// token from the same storage SetToken just wrote, so no delay is needed.
// A logout that lands mid-flight makes the attempt fail with ErrStaleAttempt.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	attempt := s.session.Begin()

	pair, err := s.api.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if pair == nil || strings.TrimSpace(pair.AccessToken) == "" {
		return nil, fmt.Errorf("login: %w", domain.ErrInvalidToken)
	}

	if err := attempt.SetToken(ctx, pair.AccessToken); err != nil {
		return nil, err
	}

	user, err := s.api.FetchIdentity(ctx)
	if err == nil && user == nil {
		err = domain.ErrNotAuthenticated
	}
	if err != nil {
		if !attempt.Stale() {
			if logoutErr := s.session.Logout(ctx); logoutErr != nil {
				s.log.Warn().Err(logoutErr).Str("tab", s.session.TabID()).Msg("logout after failed identity fetch")
			}
		}
		return nil, err
	}

	if err := attempt.Login(ctx, *user, pair.AccessToken); err != nil {
		if errors.Is(err, domain.ErrUnknownRole) {
			_ = s.session.Logout(ctx)
		}
		return nil, err
	}

	s.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("logged in")
	return user, nil
}

// Restore runs the session's startup restoration against the auth service.
func (s *AuthService) Restore(ctx context.Context) error {
	return s.session.Restore(ctx, s.api.FetchIdentity)
}

// Logout ends the session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// Register creates an account. It does not log the new user in.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	return s.api.Register(ctx, reg)
}

// ChangePassword updates the logged-in user's password.
func (s *AuthService) ChangePassword(ctx context.Context, change domain.PasswordChange) (*domain.Message, error) {
	if !s.session.Snapshot().Authenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	return s.api.ChangePassword(ctx, change)
}

// RequestPasswordReset asks the auth service to mail a reset link. Repeated
// requests for the same address inside the throttle window are rejected.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.Message, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	reserved := false
	if s.throttle != nil {
		ok, err := s.throttle.Reserve(ctx, email)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("reset throttle unavailable, sending anyway")
		case !ok:
			return nil, domain.ErrTooManyResetRequests
		default:
			reserved = true
		}
	}

	msg, err := s.api.RequestPasswordReset(ctx, email)
	if err != nil {
		if reserved {
			if relErr := s.throttle.Release(ctx, email); relErr != nil {
				s.log.Warn().Err(relErr).Msg("failed to release reset reservation")
			}
		}
		return nil, err
	}
	return msg, nil
}

// ConfirmPasswordReset sets a new password using a reset token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*domain.Message, error) {
	return s.api.ConfirmPasswordReset(ctx, token, newPassword)
}

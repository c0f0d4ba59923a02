package ports

import (
	"context"

	"github.com/hirelane/portal/internal/core/domain"
)

// AuthAPI is the remote auth service as seen through the request gateway.
type AuthAPI interface {
	Authenticate(ctx context.Context, username, password string) (*domain.TokenPair, error)
	FetchIdentity(ctx context.Context) (*domain.User, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	ChangePassword(ctx context.Context, change domain.PasswordChange) (*domain.Message, error)
	RequestPasswordReset(ctx context.Context, email string) (*domain.Message, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*domain.Message, error)
}

// ResetThrottle suppresses repeated password-reset requests for one address.
// Reserve claims the address atomically and reports false when it is already
// held. Release gives a claim back after the request could not be sent.
type ResetThrottle interface {
	Reserve(ctx context.Context, email string) (bool, error)
	Release(ctx context.Context, email string) error
}

package domain

import "errors"

var (
	ErrUnknownRole          = errors.New("unknown role")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid token")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrStaleAttempt         = errors.New("login attempt superseded by logout")
	ErrTooManyResetRequests = errors.New("password reset already requested, try again later")
)

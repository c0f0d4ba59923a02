package ports

import (
	"context"

	"github.com/hirelane/portal/internal/core/domain"
)

// SessionObserver is notified after every session transition.
type SessionObserver interface {
	Observe(event domain.SessionEvent)
}

// SessionEventRepository persists the session audit trail.
type SessionEventRepository interface {
	Insert(ctx context.Context, event *domain.SessionEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.SessionEvent, error)
}

package metrics

import "github.com/hirelane/portal/internal/core/domain"

// SessionObserver counts session transitions by kind.
type SessionObserver struct{}

func (SessionObserver) Observe(ev domain.SessionEvent) {
	SessionTransitionsTotal.WithLabelValues(string(ev.Kind)).Inc()
}

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/core/ports"
)

const defaultRestoreTimeout = 10 * time.Second

// Tab is everything the portal holds for one browser tab: its session, the
// backends bound to that session's token slot, and the auth flows on top.
type Tab struct {
	Session  *Session
	Auth     *AuthService
	Backends ports.Backends

	lastSeen atomic.Int64
}

func (t *Tab) touch(now time.Time) { t.lastSeen.Store(now.UnixNano()) }

// RegistryConfig wires a Registry.
type RegistryConfig struct {
	Storage        ports.TokenStorageProvider
	Bind           ports.BackendBinder
	Throttle       ports.ResetThrottle
	Observers      []ports.SessionObserver
	RestoreTimeout time.Duration
	Logger         zerolog.Logger
}

// Registry owns the tab sessions of a running portal.
type Registry struct {
	cfg RegistryConfig
	log zerolog.Logger
	now func() time.Time

	mu       sync.Mutex
	tabs     map[string]*Tab
	restores sync.WaitGroup
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.RestoreTimeout <= 0 {
		cfg.RestoreTimeout = defaultRestoreTimeout
	}
	return &Registry{
		cfg:  cfg,
		log:  cfg.Logger,
		now:  time.Now,
		tabs: make(map[string]*Tab),
	}
}

// Open returns the tab for tabID, creating it on first use. A new tab starts
// restoring in the background; its session reports IsLoading until done.
func (r *Registry) Open(tabID string) *Tab {
	r.mu.Lock()
	if tab, ok := r.tabs[tabID]; ok {
		r.mu.Unlock()
		tab.touch(r.now())
		return tab
	}

	opts := []SessionOption{WithSessionLogger(r.log)}
	for _, o := range r.cfg.Observers {
		opts = append(opts, WithObserver(o))
	}
	session := NewSession(tabID, r.cfg.Storage.Slot(tabID), opts...)
	backends := r.cfg.Bind(session, session.Expire)

	tab := &Tab{
		Session:  session,
		Backends: backends,
		Auth:     NewAuthService(session, backends.Auth, r.cfg.Throttle, r.log.With().Str("tab", tabID).Logger()),
	}
	tab.touch(r.now())
	r.tabs[tabID] = tab
	r.restores.Add(1)
	r.mu.Unlock()

	go r.restore(tab)
	return tab
}

func (r *Registry) restore(tab *Tab) {
	defer r.restores.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RestoreTimeout)
	defer cancel()

	if err := tab.Auth.Restore(ctx); err != nil {
		r.log.Warn().Err(err).Str("tab", tab.Session.TabID()).Msg("session restore failed")
	}
}

// Lookup returns an existing tab without creating one.
func (r *Registry) Lookup(tabID string) (*Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tab, ok := r.tabs[tabID]
	return tab, ok
}

// Len returns the number of tabs held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Wait blocks until every in-flight restoration has finished.
func (r *Registry) Wait() {
	r.restores.Wait()
}

// Sweep drops tabs idle for longer than maxIdle. Their persisted token slots
// are left alone, so a returning tab restores from storage.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, tab := range r.tabs {
		if tab.lastSeen.Load() < cutoff {
			delete(r.tabs, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled. onSweep, if
// set, receives the tab count after each pass.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, onSweep func(open int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.log.Debug().Int("removed", n).Msg("idle tabs swept")
			}
			if onSweep != nil {
				onSweep(r.Len())
			}
		}
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

// IdentityFetcher resolves the user behind the currently persisted token.
type IdentityFetcher func(ctx context.Context) (*domain.User, error)

// Session is the authoritative record of who is logged in for one tab.
//
// Transitions are serialised by mu, and every token write reaches storage
// before the call returns, so the next gateway request observes it. The
// generation counter is bumped on every logout; attempts started under an
// older generation can no longer change the session.
type Session struct {
	tabID     string
	storage   ports.TokenStorage
	observers []ports.SessionObserver
	log       zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	state domain.SessionState
	token string
	user  *domain.User
	gen   uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithObserver registers an observer for every transition.
func WithObserver(o ports.SessionObserver) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession returns a session in the restoring state.
func NewSession(tabID string, storage ports.TokenStorage, opts ...SessionOption) *Session {
	s := &Session{
		tabID:   tabID,
		storage: storage,
		log:     zerolog.Nop(),
		now:     time.Now,
		state:   domain.StateRestoring,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TabID returns the tab this session belongs to.
func (s *Session) TabID() string { return s.tabID }

// Load reads the persisted token. The gateway calls it on every request.
func (s *Session) Load(ctx context.Context) (string, error) {
	return s.storage.Load(ctx)
}

// IsLoading is true only while the startup restoration runs.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.StateRestoring
}

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{TabID: s.tabID, State: s.state, Token: s.token}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// SetToken persists token and keeps it in memory without touching the user.
// Callers follow up with Login once the identity is known.
func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.setToken(ctx, token, nil)
}

// Login finalises the logged-in state with both user and token.
func (s *Session) Login(ctx context.Context, user domain.User, token string) error {
	return s.login(ctx, user, token, nil)
}

// Logout clears token and user from memory and storage. It is idempotent.
func (s *Session) Logout(ctx context.Context) error {
	return s.clear(ctx, domain.EventLogout)
}

// Expire logs the session out after the server rejected its token.
func (s *Session) Expire(ctx context.Context) {
	if err := s.clear(ctx, domain.EventExpired); err != nil {
		s.log.Warn().Err(err).Str("tab", s.tabID).Msg("clear expired session")
	}
}

// Attempt is one login flow, tagged with the generation it started under.
type Attempt struct {
	s   *Session
	gen uint64
}

// Begin starts a login attempt.
func (s *Session) Begin() *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Attempt{s: s, gen: s.gen}
}

// SetToken is Session.SetToken unless a logout intervened.
func (a *Attempt) SetToken(ctx context.Context, token string) error {
	return a.s.setToken(ctx, token, &a.gen)
}

// Login is Session.Login unless a logout intervened.
func (a *Attempt) Login(ctx context.Context, user domain.User, token string) error {
	return a.s.login(ctx, user, token, &a.gen)
}

// Stale reports whether a logout happened since the attempt began.
func (a *Attempt) Stale() bool {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.gen != a.gen
}

// Restore runs the one-time startup sequence: with no persisted token, or
// one that is already expired or rejected, the session ends logged out;
// otherwise it ends logged in with the fetched identity. A login or logout
// that lands while Restore is in flight wins over its result, and so does a
// login attempt that has only written its token so far.
func (s *Session) Restore(ctx context.Context, fetch IdentityFetcher) error {
	s.mu.Lock()
	if s.state != domain.StateRestoring {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.mu.Unlock()

	token, err := s.storage.Load(ctx)
	if err != nil {
		s.finishRestore(ctx, gen, "", nil, false)
		return fmt.Errorf("restore session: load token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		s.finishRestore(ctx, gen, "", nil, false)
		return nil
	}

	if tokenExpired(token, s.now()) {
		s.finishRestore(ctx, gen, "", nil, true)
		return nil
	}

	user, err := fetch(ctx)
	if err == nil && (user == nil || !user.Role.Valid()) {
		err = domain.ErrNotAuthenticated
	}
	if err != nil {
		s.finishRestore(ctx, gen, "", nil, true)
		return fmt.Errorf("restore session: fetch identity: %w", err)
	}

	s.finishRestore(ctx, gen, token, user, true)
	return nil
}

func (s *Session) finishRestore(ctx context.Context, gen uint64, token string, user *domain.User, hadToken bool) {
	s.mu.Lock()
	// A token in memory while still restoring was written by a login attempt
	// after Restore loaded storage. That attempt finishes the session.
	if s.state != domain.StateRestoring || s.gen != gen || s.token != "" {
		s.mu.Unlock()
		return
	}

	if user == nil && hadToken {
		if err := s.storage.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Str("tab", s.tabID).Msg("clear rejected token")
		}
	}

	from := s.state
	if user != nil {
		u := *user
		s.token, s.user, s.state = token, &u, domain.StateLoggedIn
	} else {
		s.token, s.user, s.state = "", nil, domain.StateLoggedOut
	}
	kind := domain.EventRestored
	if user == nil {
		kind = domain.EventRestoreFailed
	}
	ev := s.event(kind, from, s.state)
	s.mu.Unlock()

	if user != nil || hadToken {
		s.emit(ev)
	}
}

func (s *Session) setToken(ctx context.Context, token string, gen *uint64) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != nil && *gen != s.gen {
		return domain.ErrStaleAttempt
	}
	if err := s.storage.Save(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = token
	return nil
}

func (s *Session) login(ctx context.Context, user domain.User, token string, gen *uint64) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}
	if !user.Role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRole, user.Role)
	}

	s.mu.Lock()
	if gen != nil && *gen != s.gen {
		s.mu.Unlock()
		return domain.ErrStaleAttempt
	}
	if err := s.storage.Save(ctx, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}

	from := s.state
	s.token, s.user, s.state = token, &user, domain.StateLoggedIn
	ev := s.event(domain.EventLogin, from, s.state)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

func (s *Session) clear(ctx context.Context, kind domain.SessionEventKind) error {
	s.mu.Lock()
	s.gen++

	changed := s.state != domain.StateLoggedOut || s.token != "" || s.user != nil
	err := s.storage.Clear(ctx)

	ev := s.event(kind, s.state, domain.StateLoggedOut)
	s.token, s.user, s.state = "", nil, domain.StateLoggedOut
	s.mu.Unlock()

	if changed {
		s.emit(ev)
	}
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// event must be called with mu held. It describes s.user as it is at the
// time of the call.
func (s *Session) event(kind domain.SessionEventKind, from, to domain.SessionState) domain.SessionEvent {
	ev := domain.SessionEvent{
		TabID: s.tabID,
		Kind:  kind,
		From:  from,
		To:    to,
		At:    s.now().UTC(),
	}
	if s.user != nil {
		ev.UserID = s.user.ID
		ev.Username = s.user.Username
		ev.Role = s.user.Role
	}
	return ev
}

func (s *Session) emit(ev domain.SessionEvent) {
	s.log.Info().
		Str("tab", ev.TabID).
		Str("kind", string(ev.Kind)).
		Str("from", string(ev.From)).
		Str("to", string(ev.To)).
		Str("username", ev.Username).
		Msg("session transition")
	for _, o := range s.observers {
		o.Observe(ev)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

type memSlot struct {
	mu      sync.Mutex
	token   string
	saves   int
	clears  int
	failErr error
}

func (m *memSlot) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memSlot) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.token = token
	m.saves++
	return nil
}

func (m *memSlot) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.clears++
	return nil
}

func (m *memSlot) value() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type memProvider struct {
	mu    sync.Mutex
	slots map[string]*memSlot
}

func newMemProvider() *memProvider { return &memProvider{slots: make(map[string]*memSlot)} }

func (p *memProvider) Slot(tabID string) ports.TokenStorage {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[tabID]
	if !ok {
		s = &memSlot{}
		p.slots[tabID] = s
	}
	return s
}

type recorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *recorder) Observe(ev domain.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []domain.SessionEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionEventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// stubAuthAPI answers from fixed users keyed by the bearer token it reads
// through tokens, the way the real gateway does.
type stubAuthAPI struct {
	tokens      ports.TokenSource
	passwords   map[string]string
	issued      map[string]string
	users       map[string]domain.User
	identityErr error
	fetches     int
	onFetch     func()
	resets      []string
	resetErr    error
}

func newStubAuthAPI() *stubAuthAPI {
	return &stubAuthAPI{
		passwords: map[string]string{},
		issued:    map[string]string{},
		users:     map[string]domain.User{},
	}
}

func (a *stubAuthAPI) addUser(u domain.User, password, token string) {
	a.passwords[u.Username] = password
	a.issued[u.Username] = token
	a.users[token] = u
}

func (a *stubAuthAPI) Authenticate(_ context.Context, username, password string) (*domain.TokenPair, error) {
	if pw, ok := a.passwords[username]; !ok || pw != password {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.TokenPair{AccessToken: a.issued[username], TokenType: "bearer"}, nil
}

func (a *stubAuthAPI) FetchIdentity(ctx context.Context) (*domain.User, error) {
	a.fetches++
	token, _ := a.tokens.Load(ctx)
	if a.onFetch != nil {
		a.onFetch()
	}
	if a.identityErr != nil {
		return nil, a.identityErr
	}
	u, ok := a.users[token]
	if !ok {
		return nil, errUnauthorized
	}
	return &u, nil
}

func (a *stubAuthAPI) Register(_ context.Context, reg domain.Registration) (*domain.User, error) {
	return &domain.User{ID: "new", Username: reg.Username, Email: reg.Email, Role: domain.RoleCandidate}, nil
}

func (a *stubAuthAPI) ChangePassword(context.Context, domain.PasswordChange) (*domain.Message, error) {
	return &domain.Message{Message: "password updated"}, nil
}

func (a *stubAuthAPI) RequestPasswordReset(_ context.Context, email string) (*domain.Message, error) {
	a.resets = append(a.resets, email)
	if a.resetErr != nil {
		return nil, a.resetErr
	}
	return &domain.Message{Message: "sent"}, nil
}

func (a *stubAuthAPI) ConfirmPasswordReset(context.Context, string, string) (*domain.Message, error) {
	return &domain.Message{Message: "reset"}, nil
}

var errUnauthorized = errors.New("unauthorized")

type memThrottle struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (t *memThrottle) Reserve(_ context.Context, email string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen[email] {
		return false, nil
	}
	t.seen[email] = true
	return true, nil
}

func (t *memThrottle) Release(_ context.Context, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, email)
	return nil
}

func signedToken(exp time.Time) string {
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(exp)}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		panic(err)
	}
	return s
}

var (
	ann = domain.User{ID: "1", Username: "ann", Email: "ann@example.com", Role: domain.RoleCandidate}
	hal = domain.User{ID: "2", Username: "hal", Email: "hal@example.com", Role: domain.RoleHR}
)

package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

func newTestRegistry(provider *memProvider, users map[string]domain.User) *Registry {
	return NewRegistry(RegistryConfig{
		Storage: provider,
		Bind: func(tokens ports.TokenSource, onDenied func(context.Context)) ports.Backends {
			api := newStubAuthAPI()
			api.tokens = tokens
			api.users = users
			return ports.Backends{Auth: api}
		},
		Logger: zerolog.Nop(),
	})
}

func TestRegistry_OpenRestoresInBackground(t *testing.T) {
	provider := newMemProvider()
	provider.Slot("a").(*memSlot).token = "tok-ann"
	reg := newTestRegistry(provider, map[string]domain.User{"tok-ann": ann})

	tab := reg.Open("a")
	reg.Wait()

	if !tab.Session.Snapshot().HasRole(domain.RoleCandidate) {
		t.Fatalf("expected restored session, got %+v", tab.Session.Snapshot())
	}
	if again := reg.Open("a"); again != tab {
		t.Fatalf("Open must return the existing tab")
	}
}

func TestRegistry_TabsAreIndependent(t *testing.T) {
	provider := newMemProvider()
	provider.Slot("a").(*memSlot).token = "tok-ann"
	reg := newTestRegistry(provider, map[string]domain.User{"tok-ann": ann})

	a := reg.Open("a")
	b := reg.Open("b")
	reg.Wait()

	if !a.Session.Snapshot().Authenticated() {
		t.Fatalf("tab a should be logged in")
	}
	if b.Session.Snapshot().Authenticated() {
		t.Fatalf("tab b must not share tab a's session")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 tabs, got %d", reg.Len())
	}
}

func TestRegistry_Sweep(t *testing.T) {
	provider := newMemProvider()
	reg := newTestRegistry(provider, nil)
	now := time.Now()
	reg.now = func() time.Time { return now }

	reg.Open("old")
	now = now.Add(time.Hour)
	reg.Open("new")
	reg.Wait()

	if removed := reg.Sweep(30 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 swept tab, got %d", removed)
	}
	if _, ok := reg.Lookup("old"); ok {
		t.Fatalf("idle tab should be gone")
	}
	if _, ok := reg.Lookup("new"); !ok {
		t.Fatalf("active tab should remain")
	}
}

// rejectingCandidates answers every call the way the gateway does for a 401.
type rejectingCandidates struct {
	onDenied func(context.Context)
}

var errRejected = errors.New("unauthorized")

func (r rejectingCandidates) UploadResume(ctx context.Context, _ string, _ io.Reader) (json.RawMessage, error) {
	r.onDenied(ctx)
	return nil, errRejected
}

func (r rejectingCandidates) ListApplications(ctx context.Context) (json.RawMessage, error) {
	r.onDenied(ctx)
	return nil, errRejected
}

func TestRegistry_DeniedCallExpiresTab(t *testing.T) {
	provider := newMemProvider()
	provider.Slot("a").(*memSlot).token = "tok-ann"
	rec := &recorder{}
	reg := NewRegistry(RegistryConfig{
		Storage: provider,
		Bind: func(tokens ports.TokenSource, onDenied func(context.Context)) ports.Backends {
			api := newStubAuthAPI()
			api.tokens = tokens
			api.users = map[string]domain.User{"tok-ann": ann}
			return ports.Backends{Auth: api, Candidates: rejectingCandidates{onDenied: onDenied}}
		},
		Observers: []ports.SessionObserver{rec},
		Logger:    zerolog.Nop(),
	})

	tab := reg.Open("a")
	reg.Wait()
	if !tab.Session.Snapshot().Authenticated() {
		t.Fatalf("expected restored session")
	}

	if _, err := tab.Backends.Candidates.ListApplications(context.Background()); !errors.Is(err, errRejected) {
		t.Fatalf("unexpected error %v", err)
	}

	snap := tab.Session.Snapshot()
	if snap.State != domain.StateLoggedOut || snap.Token != "" {
		t.Fatalf("expected logged out tab, got %+v", snap)
	}
	if tok, _ := provider.Slot("a").Load(context.Background()); tok != "" {
		t.Fatalf("expired tab kept its persisted token %q", tok)
	}
	kinds := rec.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != domain.EventExpired {
		t.Fatalf("expected an expired event last, got %v", kinds)
	}
}

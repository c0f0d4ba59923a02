package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirelane/portal/internal/core/domain"
)

func TestSession_StartsRestoring(t *testing.T) {
	s := NewSession("tab", &memSlot{})
	if !s.IsLoading() {
		t.Fatalf("new session must be loading")
	}
	if s.Snapshot().Authenticated() {
		t.Fatalf("new session must not be authenticated")
	}
}

func TestSession_SetTokenThenLogin(t *testing.T) {
	slot := &memSlot{}
	s := NewSession("tab", slot)
	ctx := context.Background()

	if err := s.SetToken(ctx, "t1"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if slot.value() != "t1" {
		t.Fatalf("token not persisted before SetToken returned")
	}
	snap := s.Snapshot()
	if snap.Token != "t1" || snap.User != nil {
		t.Fatalf("SetToken must not touch the user: %+v", snap)
	}

	if err := s.Login(ctx, ann, "t1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	snap = s.Snapshot()
	if !snap.Authenticated() || snap.Token != "t1" || snap.User.Username != "ann" {
		t.Fatalf("unexpected snapshot after login: %+v", snap)
	}
	if s.IsLoading() {
		t.Fatalf("login must end loading")
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := NewSession("tab", &memSlot{})
	_ = s.Login(context.Background(), ann, "t1")

	snap := s.Snapshot()
	snap.User.Username = "mallory"
	if s.Snapshot().User.Username != "ann" {
		t.Fatalf("snapshot mutation leaked into the session")
	}
}

func TestSession_LogoutIsIdempotent(t *testing.T) {
	slot := &memSlot{}
	rec := &recorder{}
	s := NewSession("tab", slot, WithObserver(rec))
	ctx := context.Background()
	_ = s.Login(ctx, ann, "t1")

	for i := 0; i < 2; i++ {
		if err := s.Logout(ctx); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
		snap := s.Snapshot()
		if snap.State != domain.StateLoggedOut || snap.Token != "" || snap.User != nil {
			t.Fatalf("unexpected snapshot after logout #%d: %+v", i+1, snap)
		}
		if slot.value() != "" {
			t.Fatalf("storage not cleared")
		}
	}

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != domain.EventLogin || kinds[1] != domain.EventLogout {
		t.Fatalf("expected login then a single logout event, got %v", kinds)
	}
}

func TestSession_LoginRejectsUnknownRole(t *testing.T) {
	s := NewSession("tab", &memSlot{})
	bad := ann
	bad.Role = "janitor"

	err := s.Login(context.Background(), bad, "t1")
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if s.Snapshot().Authenticated() {
		t.Fatalf("session must not be authenticated")
	}
}

func TestSession_EmptyTokenRejected(t *testing.T) {
	s := NewSession("tab", &memSlot{})
	if err := s.SetToken(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSession_PersistFailureKeepsState(t *testing.T) {
	slot := &memSlot{failErr: errors.New("disk full")}
	s := NewSession("tab", slot)

	if err := s.SetToken(context.Background(), "t1"); err == nil {
		t.Fatalf("expected persist error")
	}
	if s.Snapshot().Token != "" {
		t.Fatalf("token must not be kept in memory when storage fails")
	}
}

func TestAttempt_StaleAfterLogout(t *testing.T) {
	slot := &memSlot{}
	s := NewSession("tab", slot)
	ctx := context.Background()

	attempt := s.Begin()
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !attempt.Stale() {
		t.Fatalf("attempt should be stale")
	}
	if err := attempt.SetToken(ctx, "late"); !errors.Is(err, domain.ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}
	if err := attempt.Login(ctx, ann, "late"); !errors.Is(err, domain.ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}
	if slot.value() != "" || s.Snapshot().Authenticated() {
		t.Fatalf("stale attempt changed the session")
	}
}

func TestRestore_NoToken(t *testing.T) {
	rec := &recorder{}
	s := NewSession("tab", &memSlot{}, WithObserver(rec))
	fetched := false

	err := s.Restore(context.Background(), func(context.Context) (*domain.User, error) {
		fetched = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fetched {
		t.Fatalf("identity must not be fetched without a token")
	}
	if s.IsLoading() || s.Snapshot().State != domain.StateLoggedOut {
		t.Fatalf("expected logged out, got %+v", s.Snapshot())
	}
	if len(rec.kinds()) != 0 {
		t.Fatalf("restore without a token is not an audited transition")
	}
}

func TestRestore_ValidToken(t *testing.T) {
	token := signedToken(time.Now().Add(time.Hour))
	slot := &memSlot{token: token}
	s := NewSession("tab", slot)

	err := s.Restore(context.Background(), func(context.Context) (*domain.User, error) {
		u := ann
		return &u, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Authenticated() || snap.Token != token || snap.User.Username != "ann" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRestore_ExpiredTokenSkipsFetch(t *testing.T) {
	slot := &memSlot{token: signedToken(time.Now().Add(-time.Minute))}
	rec := &recorder{}
	s := NewSession("tab", slot, WithObserver(rec))

	err := s.Restore(context.Background(), func(context.Context) (*domain.User, error) {
		t.Fatalf("expired token must not be sent")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if slot.value() != "" {
		t.Fatalf("expired token must be cleared")
	}
	if s.Snapshot().State != domain.StateLoggedOut {
		t.Fatalf("expected logged out")
	}
	if k := rec.kinds(); len(k) != 1 || k[0] != domain.EventRestoreFailed {
		t.Fatalf("expected restore_failed event, got %v", k)
	}
}

func TestRestore_FetchFailureClearsStorage(t *testing.T) {
	slot := &memSlot{token: "opaque"}
	s := NewSession("tab", slot)

	err := s.Restore(context.Background(), func(context.Context) (*domain.User, error) {
		return nil, errUnauthorized
	})
	if !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if slot.value() != "" {
		t.Fatalf("rejected token must be cleared")
	}
	if s.IsLoading() || s.Snapshot().Authenticated() {
		t.Fatalf("expected logged out, got %+v", s.Snapshot())
	}
}

func TestRestore_RunsOnce(t *testing.T) {
	s := NewSession("tab", &memSlot{})
	_ = s.Restore(context.Background(), func(context.Context) (*domain.User, error) { return nil, nil })

	calls := 0
	_ = s.Restore(context.Background(), func(context.Context) (*domain.User, error) {
		calls++
		return nil, nil
	})
	if calls != 0 {
		t.Fatalf("second restore must be a no-op")
	}
}

func TestRestore_LogoutDuringFetchWins(t *testing.T) {
	slot := &memSlot{token: "opaque"}
	s := NewSession("tab", slot)
	ctx := context.Background()

	err := s.Restore(ctx, func(context.Context) (*domain.User, error) {
		s.Expire(ctx)
		u := ann
		return &u, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.Snapshot().Authenticated() {
		t.Fatalf("restore result must be discarded after an intervening expiry")
	}
}

func TestRestore_LoginDuringFetchWins(t *testing.T) {
	slot := &memSlot{token: "old"}
	s := NewSession("tab", slot)
	ctx := context.Background()

	err := s.Restore(ctx, func(context.Context) (*domain.User, error) {
		if err := s.Login(ctx, hal, "new"); err != nil {
			t.Fatalf("Login: %v", err)
		}
		u := ann
		return &u, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap := s.Snapshot()
	if snap.User.Username != "hal" || snap.Token != "new" || slot.value() != "new" {
		t.Fatalf("login must win over restore, got %+v", snap)
	}
}

func TestRestore_AttemptTokenDuringFetchWins(t *testing.T) {
	slot := &memSlot{token: "old"}
	s := NewSession("tab", slot)
	ctx := context.Background()
	attempt := s.Begin()

	err := s.Restore(ctx, func(context.Context) (*domain.User, error) {
		if err := attempt.SetToken(ctx, "new"); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
		u := hal
		return &u, nil
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	snap := s.Snapshot()
	if snap.Token != "new" || slot.value() != "new" {
		t.Fatalf("memory and storage must agree on the attempt's token, got %q and %q", snap.Token, slot.value())
	}
	if snap.User != nil || !s.IsLoading() {
		t.Fatalf("restore must leave the outcome to the attempt, got %+v", snap)
	}

	if err := attempt.Login(ctx, hal, "new"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if snap := s.Snapshot(); !snap.Authenticated() || snap.Token != "new" || snap.User.Username != "hal" {
		t.Fatalf("unexpected snapshot after login: %+v", snap)
	}
}

func TestRestore_FailedFetchKeepsAttemptToken(t *testing.T) {
	slot := &memSlot{token: "old"}
	s := NewSession("tab", slot)
	ctx := context.Background()
	attempt := s.Begin()

	_ = s.Restore(ctx, func(context.Context) (*domain.User, error) {
		if err := attempt.SetToken(ctx, "new"); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
		return nil, errUnauthorized
	})

	if slot.value() != "new" || s.Snapshot().Token != "new" {
		t.Fatalf("failed restore must not clear the attempt's token, got %q", slot.value())
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"future", signedToken(now.Add(time.Hour)), false},
		{"past", signedToken(now.Add(-time.Hour)), true},
		{"opaque", "not-a-jwt", false},
	}
	for _, tc := range cases {
		if got := tokenExpired(tc.token, now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

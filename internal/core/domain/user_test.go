package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"candidate": RoleCandidate,
		"HR":        RoleHR,
		" admin ":   RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil {
			t.Fatalf("ParseRole(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "guest", "superuser"} {
		if _, err := ParseRole(in); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q): expected ErrUnknownRole, got %v", in, err)
		}
	}
}

func TestUser_UnmarshalJSON(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":42,"username":"ann","email":"ann@example.com","role":"hr"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != "42" || u.Role != RoleHR {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := json.Unmarshal([]byte(`{"id":"a-1","role":"recruiter"}`), &u); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestSessionSnapshot_HasRole(t *testing.T) {
	s := SessionSnapshot{State: StateLoggedIn, Token: "t", User: &User{Role: RoleHR}}
	if !s.HasRole(RoleAdmin, RoleHR) {
		t.Fatalf("expected hr to be admitted")
	}
	if s.HasRole(RoleAdmin) {
		t.Fatalf("expected hr to be denied for admin")
	}

	transient := SessionSnapshot{State: StateLoggedOut, Token: "t"}
	if transient.Authenticated() {
		t.Fatalf("token without user must not count as authenticated")
	}
}

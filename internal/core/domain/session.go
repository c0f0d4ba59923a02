package domain

import "time"

// SessionState is one of the three states of a tab's session machine.
type SessionState string

const (
	StateRestoring SessionState = "restoring"
	StateLoggedOut SessionState = "logged_out"
	StateLoggedIn  SessionState = "logged_in"
)

// SessionSnapshot is a consistent, read-only copy of a session.
// A token without a user is the transient state between SetToken and Login.
type SessionSnapshot struct {
	TabID string
	State SessionState
	Token string
	User  *User
}

// Loading reports whether the startup restoration is still running.
func (s SessionSnapshot) Loading() bool {
	return s.State == StateRestoring
}

// Authenticated is true only in the stable logged-in state.
func (s SessionSnapshot) Authenticated() bool {
	return s.State == StateLoggedIn && s.Token != "" && s.User != nil
}

// HasRole reports whether the logged-in user holds one of roles.
func (s SessionSnapshot) HasRole(roles ...Role) bool {
	if !s.Authenticated() {
		return false
	}
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}

// SessionEventKind labels an audited session transition.
type SessionEventKind string

const (
	EventRestored      SessionEventKind = "restored"
	EventRestoreFailed SessionEventKind = "restore_failed"
	EventLogin         SessionEventKind = "login"
	EventLogout        SessionEventKind = "logout"
	EventExpired       SessionEventKind = "expired"
)

// SessionEvent records a transition of one tab's session.
type SessionEvent struct {
	TabID    string           `json:"tab_id"`
	Kind     SessionEventKind `json:"kind"`
	From     SessionState     `json:"from"`
	To       SessionState     `json:"to"`
	UserID   UserID           `json:"user_id,omitempty"`
	Username string           `json:"username,omitempty"`
	Role     Role             `json:"role,omitempty"`
	At       time.Time        `json:"at"`
}

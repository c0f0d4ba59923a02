package ports

import (
	"context"
	"encoding/json"
	"io"
)

// CandidateAPI covers the candidate-facing calls the portal forwards.
type CandidateAPI interface {
	UploadResume(ctx context.Context, filename string, content io.Reader) (json.RawMessage, error)
	ListApplications(ctx context.Context) (json.RawMessage, error)
}

// HRAPI covers the HR-facing calls the portal forwards.
type HRAPI interface {
	ListCandidates(ctx context.Context) (json.RawMessage, error)
}

// AdminAPI covers the admin-facing calls the portal forwards.
type AdminAPI interface {
	ListUsers(ctx context.Context) (json.RawMessage, error)
}

// Backends groups every remote service bound to one session.
type Backends struct {
	Auth       AuthAPI
	Candidates CandidateAPI
	HR         HRAPI
	Admin      AdminAPI
}

// TokenSource is the synchronous accessor the gateway reads on every call.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

// BackendBinder builds Backends whose requests carry the token found in
// tokens at call time and report authorization denials to onDenied.
type BackendBinder func(tokens TokenSource, onDenied func(ctx context.Context)) Backends

// Package backend implements the remote service ports on top of the request
// gateway. Each service may live at its own address, so every call uses an
// absolute URL built from that service's base.
package backend

import (
	"context"
	"strings"

	"github.com/hirelane/portal/internal/core/ports"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
)

// Services holds the base URL of every remote service.
type Services struct {
	Auth      string
	HR        string
	Admin     string
	Candidate string
}

// Binder returns a ports.BackendBinder that binds root to a tab's token slot
// and wraps the result in the service clients.
func Binder(root *gateway.Client, services Services) ports.BackendBinder {
	return func(tokens ports.TokenSource, onDenied func(ctx context.Context)) ports.Backends {
		c := root.Bind(tokens, onDenied)
		return ports.Backends{
			Auth:       NewAuthClient(c, services.Auth),
			Candidates: NewCandidateClient(c, services.Candidate),
			HR:         NewHRClient(c, services.HR),
			Admin:      NewAdminClient(c, services.Admin),
		}
	}
}

// endpoint joins a service base URL and a path. An empty base leaves the
// path relative, so the gateway resolves it against its own base URL.
func endpoint(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return path
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

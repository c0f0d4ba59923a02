package cmd

import (
	"github.com/hirelane/portal/internal/core/ports"
	"github.com/hirelane/portal/internal/infrastructure/backend"
	"github.com/hirelane/portal/internal/infrastructure/config"
	"github.com/hirelane/portal/internal/infrastructure/gateway"
	"github.com/hirelane/portal/pkg/logger"
)

// newBinder builds the root gateway client and the per-session binder shared
// by the server and the CLI commands.
func newBinder(cfg *config.Config) (ports.BackendBinder, error) {
	root, err := gateway.New(gateway.Config{
		BaseURL: cfg.Backends.APIBaseURL,
		Timeout: cfg.Backends.Timeout,
	}, logger.Component("gateway"))
	if err != nil {
		return nil, err
	}
	return backend.Binder(root, backend.Services{
		Auth:      cfg.Backends.Auth(),
		HR:        cfg.Backends.HR(),
		Admin:     cfg.Backends.Admin(),
		Candidate: cfg.Backends.Candidate(),
	}), nil
}

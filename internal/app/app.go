// Package app wires the registry together and runs it.
package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/out/auth"
	"github.com/bnema/hangar/internal/adapters/out/ratelimit"
	"github.com/bnema/hangar/internal/adapters/out/telemetry"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/config"
	registrysvc "github.com/bnema/hangar/internal/usecase/registry"
)

// Build information, set through -ldflags.
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

// App holds the wired registry and the resources it owns.
type App struct {
	cfg      *config.Config
	log      zerowrap.Logger
	registry *registrysvc.Service
	metrics  *telemetry.Metrics
	limiters *ratelimit.Limiters
	handler  http.Handler
	closers  []io.Closer
}

// New builds every component described by cfg. The caller must Close the
// returned App.
func New(cfg *config.Config, log zerowrap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	storage, closer, err := openStorage(cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	var (
		authorizer out.Authorizer
		visibility out.VisibilityPolicy
	)
	if cfg.Auth.Enabled {
		authz, err := auth.NewAuthorizer(cfg.Auth, log)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create authorizer: %w", err)
		}
		authorizer, visibility = authz, authz
	}

	var metrics out.RegistryMetrics
	if cfg.Metrics.Enabled {
		a.metrics = telemetry.NewMetrics()
		metrics = a.metrics
	}

	a.registry = registrysvc.NewService(storage, visibility, metrics)

	if cfg.RateLimit.Enabled {
		limiters, err := ratelimit.NewLimiters(cfg.RateLimit, log)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create rate limiters: %w", err)
		}
		a.limiters = limiters
		a.closers = append(a.closers, limiters)
	}

	a.handler = a.buildHandler(authorizer)

	a.log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str("storage", cfg.Storage.Backend).
		Bool("auth", cfg.Auth.Enabled).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("registry initialized")

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases storage and rate limiter resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

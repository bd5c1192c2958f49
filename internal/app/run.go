package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/zerowrap"
)

// Run serves the registry until ctx is cancelled, then shuts the server down
// gracefully. The stale upload janitor runs alongside the server.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return zerowrap.WithCtx(context.Background(), a.log)
		},
	}

	tlsConfig, err := a.tlsConfig()
	if err != nil {
		_ = ln.Close()
		return err
	}
	if tlsConfig != nil {
		server.TLSConfig = tlsConfig
		ln = tls.NewListener(ln, tlsConfig)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().
			Str(zerowrap.FieldLayer, "app").
			Str(zerowrap.FieldComponent, "server").
			Str("addr", ln.Addr().String()).
			Bool("tls", tlsConfig != nil).
			Msg("registry listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Str(zerowrap.FieldLayer, "app").Str(zerowrap.FieldComponent, "server").Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.runJanitor(gctx)
		return nil
	})

	return g.Wait()
}

// tlsConfig returns nil when TLS is not configured.
func (a *App) tlsConfig() (*tls.Config, error) {
	cfg := a.cfg.Server.TLS
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}, nil

	case len(cfg.AutocertDomains) > 0:
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.AutocertDomains...),
			Cache:      autocert.DirCache(cfg.AutocertCacheDir),
		}
		tlsCfg := m.TLSConfig()
		tlsCfg.MinVersion = tls.VersionTLS12
		return tlsCfg, nil

	default:
		return nil, nil
	}
}

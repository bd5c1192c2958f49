package app

import (
	"context"
	"time"

	"github.com/bnema/zerowrap"
)

// runJanitor purges upload sessions idle for longer than uploads.max_age
// every uploads.purge_interval until ctx is done.
func (a *App) runJanitor(ctx context.Context) {
	interval, maxAge := a.cfg.Uploads.PurgeInterval, a.cfg.Uploads.MaxAge
	if interval <= 0 || maxAge <= 0 {
		a.log.Info().Str(zerowrap.FieldLayer, "app").Str(zerowrap.FieldComponent, "janitor").Msg("stale upload janitor disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purgeStaleUploads(ctx, maxAge)
		}
	}
}

func (a *App) purgeStaleUploads(ctx context.Context, maxAge time.Duration) {
	ctx = zerowrap.CtxWithFields(zerowrap.WithCtx(ctx, a.log), map[string]any{
		zerowrap.FieldLayer:     "app",
		zerowrap.FieldComponent: "janitor",
	})
	log := zerowrap.FromCtx(ctx)

	n, err := a.registry.PurgeStaleUploads(ctx, maxAge)
	if err != nil {
		log.Warn().Err(err).Int(zerowrap.FieldCount, n).Msg("stale upload purge failed")
		return
	}
	if n > 0 {
		log.Info().Int(zerowrap.FieldCount, n).Dur("max_age", maxAge).Msg("purged stale uploads")
	}
}

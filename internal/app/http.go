package app

import (
	"encoding/json"
	"net/http"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/adapters/in/http/admin"
	"github.com/bnema/hangar/internal/adapters/in/http/middleware"
	"github.com/bnema/hangar/internal/adapters/in/http/registry"
	"github.com/bnema/hangar/internal/boundaries/out"
)

// buildHandler assembles the top level mux. /v2 and /api are mounted on
// their own prefixes so the non-core paths never see protocol traffic.
func (a *App) buildHandler(authorizer out.Authorizer) http.Handler {
	trustedNets := middleware.ParseNetworks(a.cfg.Server.TrustedProxies)
	allowedNets := middleware.ParseNetworks(a.cfg.Server.AllowedNetworks)

	var observer registry.RequestObserver
	if a.metrics != nil {
		observer = a.metrics
	}

	registryHandler := registry.NewHandler(a.registry, authorizer, registry.Options{
		Realm:           a.cfg.Auth.Realm,
		MaxManifestSize: a.cfg.Uploads.MaxManifestSize,
	}, observer)

	var globalLimiter, ipLimiter out.RateLimiter
	if a.limiters != nil {
		globalLimiter, ipLimiter = a.limiters.Global, a.limiters.PerIP
	}
	v2 := middleware.Chain(
		registry.RateLimitMiddleware(globalLimiter, ipLimiter, trustedNets),
		middleware.Decompress,
	)(registryHandler)

	mux := http.NewServeMux()
	mux.Handle(registry.PathPrefix+"/", v2)
	mux.Handle(registry.PathPrefix, v2)
	admin.NewHandler(a.registry, authorizer, a.cfg.Auth.Realm).RegisterRoutes(mux)
	mux.HandleFunc("/healthz", healthz)
	if a.metrics != nil {
		mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
	}
	mux.HandleFunc("/", root)

	return middleware.Chain(
		middleware.RequestLogger(a.log, trustedNets),
		middleware.PanicRecovery,
		middleware.SecurityHeaders(trustedNets),
		middleware.NetworkAllowlist(allowedNets, trustedNets),
	)(mux)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "hangar",
		"version": BuildVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/dto"
)

var loopbackNets = ParseNetworks([]string{"127.0.0.0/8", "::1"})

// NetworkAllowlist limits the whole server, /v2 and the listing API alike,
// to clients inside server.allowed_networks. The client address is resolved
// with GetClientIP. Loopback clients always pass. With no networks
// configured the handler is returned unchanged.
func NetworkAllowlist(allowedNets, trustedNets []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(allowedNets) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r, trustedNets)
			if InNetworks(clientIP, loopbackNets) || InNetworks(clientIP, allowedNets) {
				next.ServeHTTP(w, r)
				return
			}

			zerowrap.Ctx(r.Context()).Warn().
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str(zerowrap.FieldMethod, r.Method).
				Str(zerowrap.FieldPath, r.URL.Path).
				Str(zerowrap.FieldClientIP, clientIP).
				Msg("client outside allowed networks")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "client network not allowed"})
		})
	}
}

package middleware

import (
	"net"
	"net/http"
)

// SecurityHeaders returns middleware adding standard security headers to
// every response. HSTS is sent for TLS connections and for requests a
// trusted proxy forwarded over HTTPS.
func SecurityHeaders(trustedNets []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			// Only JSON and blobs are served
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			if r.TLS != nil || forwardedHTTPS(r, trustedNets) {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func forwardedHTTPS(r *http.Request, trustedNets []*net.IPNet) bool {
	if r.Header.Get("X-Forwarded-Proto") != "https" {
		return false
	}
	return InNetworks(remoteHost(r.RemoteAddr), trustedNets)
}

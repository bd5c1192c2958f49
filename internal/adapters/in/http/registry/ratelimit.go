package registry

import (
	"net"
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/in/http/middleware"
	"github.com/bnema/hangar/internal/boundaries/out"
)

var errTooManyRequests = newError(http.StatusTooManyRequests, CodeTooManyRequests, "rate limit exceeded")

// RateLimitMiddleware throttles /v2 traffic against a shared "global" bucket
// and a bucket per client address, keyed "ip:<addr>". The address is
// resolved with middleware.GetClientIP, so forwarding headers count only
// when the peer is in trustedNets. Blocked requests get TOOMANYREQUESTS.
func RateLimitMiddleware(
	globalLimiter out.RateLimiter,
	ipLimiter out.RateLimiter,
	trustedNets []*net.IPNet,
) func(http.Handler) http.Handler {
	if globalLimiter == nil || ipLimiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := middleware.GetClientIP(r, trustedNets)

			if !globalLimiter.Allow(ctx, "global") || !ipLimiter.Allow(ctx, "ip:"+ip) {
				zerowrap.Ctx(ctx).Warn().
					Str(zerowrap.FieldClientIP, ip).
					Str(zerowrap.FieldPath, r.URL.Path).
					Msg("registry rate limit exceeded")
				resp := Respond(ctx, errTooManyRequests)
				resp.Header.Set(APIVersionHeader, APIVersion)
				_, _ = writeResponse(w, r.Method, resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

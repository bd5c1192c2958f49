package middleware

import (
	"net/http"
	"strings"

	"github.com/bnema/hangar/internal/boundaries/out"
)

// Credentials extracts basic or bearer credentials from the Authorization
// header. Nothing is verified here.
func Credentials(r *http.Request) out.Credentials {
	if username, password, ok := r.BasicAuth(); ok {
		return out.Credentials{Username: username, Password: password}
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return out.Credentials{BearerToken: strings.TrimSpace(token)}
	}
	return out.Credentials{}
}

package registry

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/in/http/middleware"
	"github.com/bnema/hangar/internal/boundaries/in"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/logging"
)

// PathPrefix is the mount point of the registry API.
const PathPrefix = "/v2"

// RequestObserver records served registry requests.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Handler adapts the Router to net/http.
type Handler struct {
	router   *Router
	observer RequestObserver
}

// NewHandler creates a new registry HTTP handler. observer may be nil.
func NewHandler(
	registrySvc in.RegistryService,
	authorizer out.Authorizer,
	opts Options,
	observer RequestObserver,
) *Handler {
	return &Handler{
		router:   NewRouter(registrySvc, authorizer, opts),
		observer: observer,
	}
}

// RegisterRoutes registers the registry routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(PathPrefix+"/", h)
	mux.Handle(PathPrefix, h)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	resp := h.router.Serve(ctx, toRequest(r))
	if n, err := writeResponse(w, r.Method, resp); err != nil {
		zerowrap.Ctx(ctx).Warn().
			Err(err).
			Str(logging.FieldRoute, resp.Route).
			Int64("bytes", n).
			Msg("failed to write response body")
	}

	if h.observer != nil {
		h.observer.ObserveRequest(resp.Route, r.Method, resp.Status, time.Since(start))
	}
}

func toRequest(r *http.Request) *Request {
	path := strings.TrimPrefix(r.URL.Path, PathPrefix)
	if path == "" {
		path = "/"
	}

	var body io.Reader = r.Body
	if body == nil {
		body = http.NoBody
	}

	return &Request{
		Method:        r.Method,
		Path:          path,
		Query:         r.URL.Query(),
		Header:        r.Header,
		Body:          body,
		ContentLength: r.ContentLength,
		Credentials:   middleware.Credentials(r),
	}
}

// writeResponse copies resp onto w and closes its body.
func writeResponse(w http.ResponseWriter, method string, resp *Response) (int64, error) {
	defer func() { _ = resp.Close() }()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)

	if resp.Body == nil || method == http.MethodHead {
		return 0, nil
	}
	return io.Copy(w, resp.Body)
}

// Package registry implements the HTTP adapter for the registry API.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/boundaries/in"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
	"github.com/bnema/hangar/pkg/contentdigest"
	"github.com/bnema/hangar/pkg/validation"
)

// DefaultMaxManifestSize limits manifest uploads to 4MiB.
const DefaultMaxManifestSize = 4 << 20

// Route names.
const (
	RouteBase        = "base"
	RouteCatalog     = "catalog"
	RouteTags        = "tags"
	RouteManifest    = "manifest"
	RouteBlob        = "blob"
	RouteUploadStart = "upload_start"
	RouteUpload      = "upload"
	RouteUnknown     = "unknown"
)

// Options tune the router.
type Options struct {
	// Realm is advertised in WWW-Authenticate challenges.
	Realm           string
	MaxManifestSize int64
}

// Router maps registry requests onto the registry service. It performs no
// storage logic itself.
type Router struct {
	svc        in.RegistryService
	authorizer out.Authorizer
	opts       Options
}

// NewRouter creates a Router. A nil authorizer allows every request.
func NewRouter(svc in.RegistryService, authorizer out.Authorizer, opts Options) *Router {
	if opts.MaxManifestSize <= 0 {
		opts.MaxManifestSize = DefaultMaxManifestSize
	}
	if opts.Realm == "" {
		opts.Realm = "hangar"
	}
	return &Router{svc: svc, authorizer: authorizer, opts: opts}
}

// route is a classified request path.
type route struct {
	name      string
	repo      string
	reference string
	uploadID  string
}

// classify resolves path into a route. Repository names may contain
// "blobs", "manifests" or "tags" segments, so paths are matched from the end.
func classify(path string) route {
	path = strings.Trim(path, "/")
	switch path {
	case "":
		return route{name: RouteBase}
	case "_catalog":
		return route{name: RouteCatalog}
	}

	segs := strings.Split(path, "/")
	n := len(segs)
	if n < 3 {
		return route{name: RouteUnknown}
	}
	last, prev := segs[n-1], segs[n-2]

	switch {
	case prev == "tags" && last == "list":
		return route{name: RouteTags, repo: strings.Join(segs[:n-2], "/")}
	case n >= 4 && segs[n-3] == "blobs" && prev == "uploads":
		return route{name: RouteUpload, repo: strings.Join(segs[:n-3], "/"), uploadID: last}
	case prev == "blobs" && last == "uploads":
		return route{name: RouteUploadStart, repo: strings.Join(segs[:n-2], "/")}
	case prev == "blobs":
		return route{name: RouteBlob, repo: strings.Join(segs[:n-2], "/"), reference: last}
	case prev == "manifests":
		return route{name: RouteManifest, repo: strings.Join(segs[:n-2], "/"), reference: last}
	}
	return route{name: RouteUnknown}
}

// action returns the access a request needs.
func (rt route) action(method string) string {
	switch rt.name {
	case RouteUploadStart, RouteUpload:
		return domain.ActionPush
	}
	switch method {
	case http.MethodPut, http.MethodPost, http.MethodPatch:
		return domain.ActionPush
	case http.MethodDelete:
		return domain.ActionDelete
	default:
		return domain.ActionPull
	}
}

// Serve handles one registry request.
func (r *Router) Serve(ctx context.Context, req *Request) *Response {
	rt := classify(req.Path)

	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "http",
		logging.FieldRoute:    rt.name,
	})
	if rt.repo != "" {
		ctx = zerowrap.CtxWithField(ctx, logging.FieldRepository, rt.repo)
	}

	resp := r.serve(ctx, req, rt)
	resp.Route = rt.name
	resp.Header.Set(APIVersionHeader, APIVersion)
	return resp
}

func (r *Router) serve(ctx context.Context, req *Request, rt route) *Response {
	if rt.name == RouteUnknown {
		return Respond(ctx, newError(http.StatusNotFound, CodeUnsupported, "unsupported route"))
	}
	if rt.name != RouteBase && rt.name != RouteCatalog {
		if err := validation.ValidateRepositoryName(rt.repo); err != nil {
			return Respond(ctx, newError(http.StatusBadRequest, CodeNameInvalid, "invalid repository name").WithDetail(err.Error()))
		}
	}

	if !allowedMethod(rt.name, req.Method) {
		return Respond(ctx, newError(http.StatusMethodNotAllowed, CodeUnsupported, "method not allowed"))
	}

	ctx, subject, resp := r.authorize(ctx, req, rt)
	if resp != nil {
		return resp
	}

	switch rt.name {
	case RouteBase:
		return jsonResponse(ctx, http.StatusOK, struct{}{})
	case RouteCatalog:
		return r.catalog(ctx, req, subject)
	case RouteTags:
		return r.tags(ctx, req, rt.repo)
	case RouteBlob:
		return r.blob(ctx, req, rt)
	case RouteManifest:
		return r.manifest(ctx, req, rt)
	case RouteUploadStart:
		return r.startUpload(ctx, req, rt.repo)
	default:
		return r.upload(ctx, req, rt)
	}
}

var routeMethods = map[string][]string{
	RouteBase:        {http.MethodGet, http.MethodHead},
	RouteCatalog:     {http.MethodGet},
	RouteTags:        {http.MethodGet},
	RouteBlob:        {http.MethodGet, http.MethodHead, http.MethodDelete},
	RouteManifest:    {http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete},
	RouteUploadStart: {http.MethodPost},
	RouteUpload:      {http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete},
}

func allowedMethod(routeName, method string) bool {
	return slices.Contains(routeMethods[routeName], method)
}

// authorize runs the access gate and returns the authenticated subject. It
// returns a non-nil response when the request must stop here.
func (r *Router) authorize(ctx context.Context, req *Request, rt route) (context.Context, domain.Subject, *Response) {
	if r.authorizer == nil {
		return ctx, domain.Subject{}, nil
	}

	decision, err := r.authorizer.Authorize(ctx, out.AccessRequest{
		Credentials: req.Credentials,
		Repository:  rt.repo,
		Action:      rt.action(req.Method),
	})
	if err != nil {
		return ctx, domain.Subject{}, Respond(ctx, fmt.Errorf("failed to authorize request: %w", err))
	}

	if !decision.Subject.Anonymous() {
		ctx = zerowrap.CtxWithField(ctx, logging.FieldSubject, decision.Subject.Name)
	}
	if decision.Allowed {
		return ctx, decision.Subject, nil
	}

	if decision.Subject.Anonymous() {
		zerowrap.Ctx(ctx).Debug().Msg("authentication required")
		resp := Respond(ctx, domain.ErrUnauthorized)
		resp.Header.Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", r.opts.Realm))
		return ctx, decision.Subject, resp
	}

	zerowrap.Ctx(ctx).Info().Msg("access denied")
	return ctx, decision.Subject, Respond(ctx, domain.ErrDenied)
}

func parseDigest(s string) (digest.Digest, error) {
	if s == "" {
		return "", domain.ErrDigestRequired
	}
	return contentdigest.Parse(s)
}

func blobLocation(name string, dgst digest.Digest) string {
	return fmt.Sprintf("/v2/%s/blobs/%s", name, dgst)
}

func uploadLocation(name, id string) string {
	return fmt.Sprintf("/v2/%s/blobs/uploads/%s", name, id)
}

func manifestLocation(name string, dgst digest.Digest) string {
	return fmt.Sprintf("/v2/%s/manifests/%s", name, dgst)
}

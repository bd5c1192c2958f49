package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
	"github.com/bnema/hangar/pkg/validation"
)

var errManifestMissing = newError(http.StatusBadRequest, CodeManifestInvalid, "manifest missing")

func (r *Router) manifest(ctx context.Context, req *Request, rt route) *Response {
	if err := validation.ValidateReference(rt.reference); err != nil {
		return Respond(ctx, Classify(domain.ErrInvalidReference).WithDetail(err.Error()))
	}
	ctx = zerowrap.CtxWithField(ctx, logging.FieldReference, rt.reference)

	switch req.Method {
	case http.MethodPut:
		return r.putManifest(ctx, req, rt)

	case http.MethodDelete:
		if err := r.svc.DeleteManifest(ctx, rt.repo, rt.reference); err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusAccepted)
		resp.Header.Set("Content-Length", "0")
		return resp

	default:
		m, err := r.svc.GetManifest(ctx, rt.repo, rt.reference)
		if err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusOK)
		resp.Header.Set("Content-Type", m.ContentType)
		resp.Header.Set("Content-Length", strconv.Itoa(len(m.Data)))
		resp.Header.Set("Docker-Content-Digest", m.Digest.String())
		resp.Header.Set("Etag", strconv.Quote(m.Digest.String()))
		if req.Method == http.MethodGet {
			resp.Body = io.NopCloser(bytes.NewReader(m.Data))
		}
		return resp
	}
}

func (r *Router) putManifest(ctx context.Context, req *Request, rt route) *Response {
	limit := r.opts.MaxManifestSize
	if req.ContentLength > limit {
		return Respond(ctx, domain.ErrTooLarge)
	}

	var data []byte
	if req.Body != nil {
		var err error
		data, err = io.ReadAll(io.LimitReader(req.Body, limit+1))
		if err != nil {
			return Respond(ctx, fmt.Errorf("failed to read manifest: %w", err))
		}
	}
	if int64(len(data)) > limit {
		return Respond(ctx, domain.ErrTooLarge)
	}
	if len(data) == 0 {
		return Respond(ctx, errManifestMissing)
	}

	dgst, err := r.svc.PutManifest(ctx, rt.repo, rt.reference, data, req.Header.Get("Content-Type"))
	if err != nil {
		return Respond(ctx, err)
	}

	resp := newResponse(http.StatusCreated)
	resp.Header.Set("Location", manifestLocation(rt.repo, dgst))
	resp.Header.Set("Docker-Content-Digest", dgst.String())
	resp.Header.Set("Content-Length", "0")
	return resp
}

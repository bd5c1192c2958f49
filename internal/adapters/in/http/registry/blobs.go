package registry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/logging"
)

func (r *Router) blob(ctx context.Context, req *Request, rt route) *Response {
	dgst, err := parseDigest(rt.reference)
	if err != nil {
		return Respond(ctx, err)
	}
	ctx = zerowrap.CtxWithField(ctx, logging.FieldDigest, dgst.String())

	switch req.Method {
	case http.MethodDelete:
		if err := r.svc.DeleteBlob(ctx, rt.repo, dgst); err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusAccepted)
		resp.Header.Set("Content-Length", "0")
		return resp

	case http.MethodHead:
		blob, err := r.svc.StatBlob(ctx, rt.repo, dgst)
		if err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusOK)
		setBlobHeaders(resp, blob.Digest.String(), blob.Size)
		return resp

	default:
		body, blob, err := r.svc.GetBlob(ctx, rt.repo, dgst)
		if err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusOK)
		setBlobHeaders(resp, blob.Digest.String(), blob.Size)
		resp.Body = body
		return resp
	}
}

func setBlobHeaders(resp *Response, dgst string, size int64) {
	resp.Header.Set("Content-Type", "application/octet-stream")
	resp.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	resp.Header.Set("Docker-Content-Digest", dgst)
	resp.Header.Set("Etag", strconv.Quote(dgst))
}

package registry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/opencontainers/go-digest"

	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
	"github.com/bnema/hangar/pkg/validation"
)

// startUpload opens a session, or stores the body directly when the client
// supplies the digest up front. Cross-repository mount requests fall back to
// a regular session.
func (r *Router) startUpload(ctx context.Context, req *Request, name string) *Response {
	if raw := req.Query.Get("digest"); raw != "" {
		dgst, err := parseDigest(raw)
		if err != nil {
			return Respond(ctx, err)
		}
		ctx = zerowrap.CtxWithField(ctx, logging.FieldDigest, dgst.String())

		blob, err := r.svc.PutBlob(ctx, name, dgst, req.Body, req.ContentLength)
		if err != nil {
			return Respond(ctx, err)
		}
		return blobCreated(name, blob.Digest)
	}

	if mount := req.Query.Get("mount"); mount != "" {
		zerowrap.Ctx(ctx).Debug().Str("mount", mount).Msg("blob mount not supported, starting upload")
	}

	upload, err := r.svc.StartUpload(ctx, name)
	if err != nil {
		return Respond(ctx, err)
	}
	return uploadAccepted(http.StatusAccepted, upload)
}

func (r *Router) upload(ctx context.Context, req *Request, rt route) *Response {
	if err := validation.ValidateUUID(rt.uploadID); err != nil {
		return Respond(ctx, domain.ErrUploadNotFound)
	}
	ctx = zerowrap.CtxWithField(ctx, logging.FieldUploadID, rt.uploadID)

	switch req.Method {
	case http.MethodGet:
		upload, err := r.svc.UploadStatus(ctx, rt.repo, rt.uploadID)
		if err != nil {
			return Respond(ctx, err)
		}
		return uploadAccepted(http.StatusNoContent, upload)

	case http.MethodPatch:
		rng, err := parseContentRange(req.Header.Get("Content-Range"))
		if err != nil {
			return Respond(ctx, err)
		}
		upload, err := r.svc.AppendUpload(ctx, rt.repo, rt.uploadID, req.Body, rng)
		if err != nil {
			return Respond(ctx, err)
		}
		return uploadAccepted(http.StatusAccepted, upload)

	case http.MethodPut:
		dgst, err := parseDigest(req.Query.Get("digest"))
		if err != nil {
			return Respond(ctx, err)
		}
		rng, err := parseContentRange(req.Header.Get("Content-Range"))
		if err != nil {
			return Respond(ctx, err)
		}
		ctx = zerowrap.CtxWithField(ctx, logging.FieldDigest, dgst.String())

		blob, err := r.svc.CompleteUpload(ctx, rt.repo, rt.uploadID, dgst, req.Body, rng)
		if err != nil {
			return Respond(ctx, err)
		}
		return blobCreated(rt.repo, blob.Digest)

	default:
		if err := r.svc.CancelUpload(ctx, rt.repo, rt.uploadID); err != nil {
			return Respond(ctx, err)
		}
		resp := newResponse(http.StatusNoContent)
		resp.Header.Set("Content-Length", "0")
		return resp
	}
}

func uploadAccepted(status int, upload domain.Upload) *Response {
	resp := newResponse(status)
	resp.Header.Set("Location", uploadLocation(upload.Repository, upload.ID))
	resp.Header.Set("Range", upload.RangeHeader())
	resp.Header.Set("Docker-Upload-UUID", upload.ID)
	resp.Header.Set("Content-Length", "0")
	return resp
}

func blobCreated(name string, dgst digest.Digest) *Response {
	resp := newResponse(http.StatusCreated)
	resp.Header.Set("Location", blobLocation(name, dgst))
	resp.Header.Set("Docker-Content-Digest", dgst.String())
	resp.Header.Set("Content-Length", "0")
	return resp
}

// parseContentRange parses an upload Content-Range of the form
// "<start>-<end>". The "bytes" unit prefix and a "/<size>" suffix sent by
// some clients are tolerated. An empty header yields a nil range.
func parseContentRange(header string) (*domain.ByteRange, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	v := strings.TrimPrefix(header, "bytes")
	v = strings.TrimLeft(v, " =")
	v, _, _ = strings.Cut(v, "/")

	startStr, endStr, ok := strings.Cut(v, "-")
	if !ok {
		return nil, fmt.Errorf("%w: malformed content range %q", domain.ErrRangeInvalid, header)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("%w: malformed content range %q", domain.ErrRangeInvalid, header)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return nil, fmt.Errorf("%w: malformed content range %q", domain.ErrRangeInvalid, header)
	}

	return &domain.ByteRange{Start: start, End: end}, nil
}

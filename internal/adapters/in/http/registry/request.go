package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/boundaries/out"
)

// APIVersionHeader is set on every /v2 response.
const (
	APIVersionHeader = "Docker-Distribution-Api-Version"
	APIVersion       = "registry/2.0"
)

// Request describes one registry API call independently of net/http.
type Request struct {
	Method string
	// Path is the request path below the /v2 prefix, e.g. "/library/alpine/tags/list".
	Path          string
	Query         url.Values
	Header        http.Header
	Body          io.Reader
	ContentLength int64
	Credentials   out.Credentials
}

// Response describes the answer to a Request. Body is nil for responses
// without content and is closed by whoever writes the response.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
	// Route names the matched endpoint for logs and metrics.
	Route string
}

func newResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// internalErrorBody is served when a response body cannot be encoded.
var internalErrorBody, _ = json.Marshal(dto.RegistryErrorResponse{
	Errors: []dto.RegistryErrorItem{{Code: errInternal.Code, Message: errInternal.Message}},
})

// jsonResponse renders v as the response body. A value that cannot be
// encoded turns the response into INTERNAL_ERROR.
func jsonResponse(ctx context.Context, status int, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		zerowrap.Ctx(ctx).Error().Err(err).Int(zerowrap.FieldStatus, status).Msg("failed to encode response")
		status, data = errInternal.Status, internalErrorBody
	}
	resp := newResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("Content-Length", strconv.Itoa(len(data)))
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp
}

// Close releases the response body, if any.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/domain"
)

// Distribution error codes.
const (
	CodeBlobUnknown       = "BLOB_UNKNOWN"
	CodeBlobUploadInvalid = "BLOB_UPLOAD_INVALID"
	CodeBlobUploadUnknown = "BLOB_UPLOAD_UNKNOWN"
	CodeDigestInvalid     = "DIGEST_INVALID"
	CodeManifestInvalid   = "MANIFEST_INVALID"
	CodeManifestUnknown   = "MANIFEST_UNKNOWN"
	CodeNameInvalid       = "NAME_INVALID"
	CodeNameUnknown       = "NAME_UNKNOWN"
	CodeSizeInvalid       = "SIZE_INVALID"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeDenied            = "DENIED"
	CodeUnsupported       = "UNSUPPORTED"
	CodeTooManyRequests   = "TOOMANYREQUESTS"
	CodePaginationInvalid = "PAGINATION_NUMBER_INVALID"
	CodeInternal          = "INTERNAL_ERROR"
)

// RegistryError is an error rendered in the distribution error envelope.
type RegistryError struct {
	Code    string
	Message string
	Status  int
	Detail  any
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetail returns a copy of e carrying detail.
func (e *RegistryError) WithDetail(detail any) *RegistryError {
	c := *e
	c.Detail = detail
	return &c
}

func newError(status int, code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message, Status: status}
}

var errInternal = newError(http.StatusInternalServerError, CodeInternal, "internal server error")

// classification maps domain errors onto registry errors. Order matters:
// the first match wins.
var classification = []struct {
	target error
	err    *RegistryError
}{
	{domain.ErrBlobNotFound, newError(http.StatusNotFound, CodeBlobUnknown, "blob unknown to registry")},
	{domain.ErrManifestNotFound, newError(http.StatusNotFound, CodeManifestUnknown, "manifest unknown")},
	{domain.ErrUploadNotFound, newError(http.StatusNotFound, CodeBlobUploadUnknown, "blob upload unknown to registry")},
	{domain.ErrRepositoryNotFound, newError(http.StatusNotFound, CodeNameUnknown, "repository name not known to registry")},
	{domain.ErrDigestRequired, newError(http.StatusBadRequest, CodeDigestInvalid, "digest missing")},
	{domain.ErrDigestMismatch, newError(http.StatusBadRequest, CodeDigestInvalid, "provided digest did not match uploaded content")},
	{domain.ErrInvalidDigest, newError(http.StatusBadRequest, CodeDigestInvalid, "provided digest is invalid")},
	{domain.ErrManifestInvalid, newError(http.StatusBadRequest, CodeManifestInvalid, "manifest invalid")},
	{domain.ErrInvalidReference, newError(http.StatusBadRequest, CodeManifestInvalid, "invalid manifest reference")},
	{domain.ErrRangeInvalid, newError(http.StatusRequestedRangeNotSatisfiable, CodeBlobUploadInvalid, "content range is not contiguous with the upload")},
	{domain.ErrTooLarge, newError(http.StatusRequestEntityTooLarge, CodeSizeInvalid, "payload exceeds the allowed size")},
	{domain.ErrSizeMismatch, newError(http.StatusBadRequest, CodeSizeInvalid, "content length does not match declared size")},
	{domain.ErrInvalidName, newError(http.StatusBadRequest, CodeNameInvalid, "invalid repository name")},
	{domain.ErrUnauthorized, newError(http.StatusUnauthorized, CodeUnauthorized, "authentication required")},
	{domain.ErrDenied, newError(http.StatusForbidden, CodeDenied, "requested access to the resource is denied")},
}

// Classify maps err onto a registry error. It returns nil for errors that
// are not part of the taxonomy.
func Classify(err error) *RegistryError {
	var regErr *RegistryError
	if errors.As(err, &regErr) {
		return regErr
	}
	for _, c := range classification {
		if errors.Is(err, c.target) {
			return c.err
		}
	}
	return nil
}

// Respond renders err in the distribution error envelope. Errors outside the
// taxonomy are logged and rendered as INTERNAL_ERROR without their message.
func Respond(ctx context.Context, err error) *Response {
	regErr := Classify(err)
	if regErr == nil {
		zerowrap.Ctx(ctx).Error().Err(err).Msg("registry request failed")
		regErr = errInternal
	}

	resp := jsonResponse(ctx, regErr.Status, dto.RegistryErrorResponse{
		Errors: []dto.RegistryErrorItem{{
			Code:    regErr.Code,
			Message: regErr.Message,
			Detail:  regErr.Detail,
		}},
	})
	if regErr.Status == http.StatusTooManyRequests {
		resp.Header.Set("Retry-After", "1")
	}
	return resp
}

package domain

import (
	"errors"

	"github.com/bnema/hangar/pkg/contentdigest"
)

// Domain errors represent registry-level failure conditions shared by every layer.
// The HTTP adapter maps them onto the distribution error codes.
var (
	// Not found
	ErrBlobNotFound       = errors.New("blob unknown to registry")
	ErrManifestNotFound   = errors.New("manifest unknown")
	ErrUploadNotFound     = errors.New("blob upload unknown to registry")
	ErrRepositoryNotFound = errors.New("repository name not known to registry")
	ErrObjectNotFound     = errors.New("object not found")

	// Integrity
	ErrInvalidDigest  = contentdigest.ErrInvalid
	ErrDigestMismatch = contentdigest.ErrMismatch
	ErrDigestRequired = errors.New("digest missing")
	ErrSizeMismatch   = errors.New("content length does not match declared size")
	ErrTooLarge       = errors.New("payload exceeds the allowed size")

	// Client input
	ErrManifestInvalid  = errors.New("manifest invalid")
	ErrInvalidName      = errors.New("invalid repository name")
	ErrInvalidReference = errors.New("invalid manifest reference")
	ErrRangeInvalid     = errors.New("content range is not contiguous with the upload")

	// Access
	ErrUnauthorized = errors.New("authentication required")
	ErrDenied       = errors.New("requested access to the resource is denied")
)

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/zerowrap"

	"github.com/bnema/hangar/internal/domain"
)

// clientErrors are failures caused by the request, logged at debug level.
var clientErrors = []error{
	domain.ErrBlobNotFound,
	domain.ErrManifestNotFound,
	domain.ErrUploadNotFound,
	domain.ErrRepositoryNotFound,
	domain.ErrInvalidDigest,
	domain.ErrDigestMismatch,
	domain.ErrDigestRequired,
	domain.ErrSizeMismatch,
	domain.ErrManifestInvalid,
	domain.ErrInvalidName,
	domain.ErrInvalidReference,
	domain.ErrRangeInvalid,
}

func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapErr logs err on the context logger and wraps it with msg.
func wrapErr(ctx context.Context, err error, msg string) error {
	log := zerowrap.FromCtx(ctx)
	if isClientError(err) {
		log.Debug().Err(err).Msg(msg)
	} else {
		log.Error().Err(err).Msg(msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

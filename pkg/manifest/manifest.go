// Package manifest inspects manifest documents just enough for the registry
// to store them: structural presence and the declared media type.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Docker media types that image-spec does not define.
const (
	MediaTypeDockerManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// DefaultMediaType is used when neither the request nor the document declare one.
const DefaultMediaType = "application/json"

var (
	// ErrEmpty is returned for a zero-length manifest body.
	ErrEmpty = errors.New("manifest missing")
	// ErrMalformed is returned when the body is not a JSON object.
	ErrMalformed = errors.New("manifest is not a JSON document")
)

// Header holds the fields common to image manifests and indexes.
type Header struct {
	specs.Versioned
	MediaType    string            `json:"mediaType,omitempty"`
	ArtifactType string            `json:"artifactType,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
}

// Inspect checks that data is a JSON object and returns its header fields.
func Inspect(data []byte) (Header, error) {
	var h Header
	if len(data) == 0 {
		return h, ErrEmpty
	}
	// A JSON null decodes into a nil map without error.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return h, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return h, fmt.Errorf("%w: got null", ErrMalformed)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return h, nil
}

// ResolveMediaType picks the content type a manifest is stored and served
// with: the request's Content-Type (without parameters), then the document's
// own mediaType field, then DefaultMediaType.
func ResolveMediaType(contentType string, h Header) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt
		}
		return strings.TrimSpace(contentType)
	}
	if h.MediaType != "" {
		return h.MediaType
	}
	return DefaultMediaType
}

// IsIndex reports whether mediaType names a multi-platform index.
func IsIndex(mediaType string) bool {
	return mediaType == ocispec.MediaTypeImageIndex || mediaType == MediaTypeDockerManifestList
}

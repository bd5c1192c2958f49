package domain

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
)

// Blob is an immutable payload (layer or config) addressed by its digest
// inside a repository.
type Blob struct {
	Repository string
	Digest     digest.Digest
	Size       int64
}

// Manifest is a stored manifest revision. Digest is always the digest of Data.
type Manifest struct {
	Repository  string
	Reference   string
	ContentType string
	Data        []byte
	Digest      digest.Digest
	Size        int64
}

// Upload is an in-progress chunked blob upload.
type Upload struct {
	ID         string    `json:"id"`
	Repository string    `json:"repository"`
	Length     int64     `json:"length"`
	Parts      int       `json:"parts"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RangeHeader returns the value of the Range header describing the bytes
// received so far. An empty upload reports "0-0".
func (u Upload) RangeHeader() string {
	end := u.Length - 1
	if end < 0 {
		end = 0
	}
	return fmt.Sprintf("0-%d", end)
}

// ByteRange is an inclusive client supplied Content-Range.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// Repository is a namespace grouping blobs and manifests.
type Repository struct {
	Name string
	Tags []string
}

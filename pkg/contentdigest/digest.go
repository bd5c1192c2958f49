// Package contentdigest computes and verifies the content digests that address
// blobs and manifests. Only SHA-256 is accepted.
package contentdigest

import (
	_ "crypto/sha256" // registers the hash used by digest.SHA256
	"errors"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Algorithm is the only digest algorithm the registry accepts from clients.
const Algorithm = digest.SHA256

var (
	// ErrInvalid is returned when a digest string is malformed or uses another algorithm.
	ErrInvalid = errors.New("invalid digest")
	// ErrMismatch is returned when content does not hash to the digest it was declared under.
	ErrMismatch = errors.New("digest mismatch")
)

// FromBytes returns the digest of b.
func FromBytes(b []byte) digest.Digest {
	return Algorithm.FromBytes(b)
}

// FromReader hashes everything read from r and returns the digest with the
// number of bytes consumed.
func FromReader(r io.Reader) (digest.Digest, int64, error) {
	d := Algorithm.Digester()
	n, err := io.Copy(d.Hash(), r)
	if err != nil {
		return "", n, fmt.Errorf("failed to read content: %w", err)
	}
	return d.Digest(), n, nil
}

// NewDigester returns an incremental hasher. Writing the same bytes in any
// chunking yields the same digest.
func NewDigester() digest.Digester {
	return Algorithm.Digester()
}

// Parse validates a client supplied digest string.
func Parse(s string) (digest.Digest, error) {
	if s == "" {
		return "", fmt.Errorf("%w: digest missing", ErrInvalid)
	}
	d, err := digest.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if d.Algorithm() != Algorithm {
		return "", fmt.Errorf("%w: unsupported algorithm %q", ErrInvalid, d.Algorithm())
	}
	return d, nil
}

// VerifyingReader hashes the bytes flowing through it. When the underlying
// reader reaches EOF and the content does not match the expected digest, Read
// returns ErrMismatch instead of io.EOF, so a consumer that commits only on a
// clean EOF never commits mismatched content.
type VerifyingReader struct {
	r        io.Reader
	expected digest.Digest
	verifier digest.Verifier
	n        int64
}

// NewVerifyingReader wraps r. expected must be a valid digest (see Parse).
func NewVerifyingReader(r io.Reader, expected digest.Digest) *VerifyingReader {
	return &VerifyingReader{
		r:        r,
		expected: expected,
		verifier: expected.Verifier(),
	}
}

func (v *VerifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		_, _ = v.verifier.Write(p[:n])
		v.n += int64(n)
	}
	if errors.Is(err, io.EOF) && !v.verifier.Verified() {
		return n, fmt.Errorf("%w: content does not match %s", ErrMismatch, v.expected)
	}
	return n, err
}

// BytesRead reports how many bytes passed through the reader so far.
func (v *VerifyingReader) BytesRead() int64 {
	return v.n
}

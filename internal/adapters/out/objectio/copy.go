// Package objectio holds the stream helpers shared by the object storage backends.
package objectio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bnema/hangar/internal/domain"
)

// CopySized copies r into dst. When size is non-negative the copy fails with
// domain.ErrSizeMismatch unless exactly size bytes were available.
func CopySized(dst io.Writer, r io.Reader, size int64) (int64, error) {
	if size < 0 {
		return io.Copy(dst, r)
	}

	n, err := io.Copy(dst, io.LimitReader(r, size+1))
	if err != nil {
		return n, err
	}
	if n != size {
		return n, fmt.Errorf("%w: expected %d bytes, got %d", domain.ErrSizeMismatch, size, n)
	}
	return n, nil
}

// ReadAllSized reads r completely into memory, enforcing size like CopySized.
func ReadAllSized(r io.Reader, size int64) ([]byte, error) {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := CopySized(&buf, r, size); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

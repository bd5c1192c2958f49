package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/bnema/hangar/internal/adapters/dto"
)

// maxDecoderWindow bounds the memory a single zstd stream may claim.
const maxDecoderWindow = 64 << 20

// Decompress transparently decodes request bodies sent with a zstd or gzip
// Content-Encoding. The decoded length is unknown, so ContentLength becomes -1.
// Other encodings are rejected with 415.
func Decompress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
		if encoding == "" || encoding == "identity" || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		body, err := decoder(encoding, r.Body)
		if err != nil {
			zerowrap.Ctx(r.Context()).Debug().Err(err).Str("encoding", encoding).Msg("rejecting request body")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: err.Error()})
			return
		}
		defer func() { _ = body.Close() }()

		r.Body = body
		r.ContentLength = -1
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")

		next.ServeHTTP(w, r)
	})
}

func decoder(encoding string, body io.Reader) (io.ReadCloser, error) {
	switch encoding {
	case "zstd":
		dec, err := zstd.NewReader(body,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxWindow(maxDecoderWindow),
		)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd stream: %w", err)
		}
		return dec.IOReadCloser(), nil
	case "gzip", "x-gzip":
		dec, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip stream: %w", err)
		}
		return dec, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

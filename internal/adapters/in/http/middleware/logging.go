// Package middleware provides HTTP middleware for the adapters layer.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/rs/xid"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ResponseWriter wraps http.ResponseWriter to capture status code and bytes written.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

// NewResponseWriter creates a new wrapped response writer.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code.
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures bytes written.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// StatusCode returns the captured status code.
func (rw *ResponseWriter) StatusCode() int {
	return rw.statusCode
}

// BytesWritten returns the number of bytes written.
func (rw *ResponseWriter) BytesWritten() int64 {
	return rw.bytes
}

// Flush implements http.Flusher by delegating to the underlying ResponseWriter.
func (rw *ResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestLogger logs every request once it completes and attaches a request
// scoped logger to the context for downstream handlers. The request id is
// taken from X-Request-ID when present and generated otherwise.
func RequestLogger(log zerowrap.Logger, trustedNets []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = xid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			clientIP := GetClientIP(r, trustedNets)
			ctx := zerowrap.CtxWithFields(zerowrap.WithCtx(r.Context(), log), map[string]any{
				logging.FieldRequestID: requestID,
				zerowrap.FieldClientIP: clientIP,
			})
			r = r.WithContext(ctx)
			reqLog := zerowrap.FromCtx(ctx)

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			status := rw.StatusCode()
			event := reqLog.Info()
			if status >= http.StatusInternalServerError {
				event = reqLog.Warn()
			}
			event.
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str(zerowrap.FieldMethod, r.Method).
				Str(zerowrap.FieldPath, r.URL.Path).
				Str("query", r.URL.RawQuery).
				Str(zerowrap.FieldHost, r.Host).
				Str("user_agent", r.UserAgent()).
				Int(zerowrap.FieldStatus, status).
				Int64("bytes", rw.BytesWritten()).
				Dur(zerowrap.FieldDuration, time.Since(start)).
				Str("proto", r.Proto).
				Msg("HTTP request")
		})
	}
}

// PanicRecovery middleware recovers from panics and logs them.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				zerowrap.Ctx(r.Context()).Error().
					Str(zerowrap.FieldLayer, "adapter").
					Str(zerowrap.FieldAdapter, "http").
					Interface("panic", err).
					Str(zerowrap.FieldMethod, r.Method).
					Str(zerowrap.FieldPath, r.URL.Path).
					Msg("panic recovered")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Internal Server Error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Chain combines multiple middleware functions. The first middleware is the
// outermost.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

package middleware

import (
	"io"
	"net/http"
)

// tooLargeBody uses the same {"error":{...}} envelope as the handlers.
const tooLargeBody = `{"error":{"code":"request_too_large","message":"request body too large"}}` + "\n"

// NewMaxBodySizeHandler returns a middleware that limits incoming request body
// sizes to limit bytes. A declared Content-Length over the limit is rejected
// with a JSON 413 before the next handler runs; otherwise the body is wrapped
// in http.MaxBytesReader so an oversized streaming body fails on read.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = io.WriteString(w, tooLargeBody)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

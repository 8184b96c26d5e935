package middleware

import "net/http"

// DefaultMaxRequestBodySize caps JSON request bodies. Auth payloads are tiny;
// anything bigger is abuse.
const DefaultMaxRequestBodySize = 64 * 1024

// RequestSizeLimit creates middleware that limits request body size.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

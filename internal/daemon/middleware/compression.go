package middleware

import (
	"net/http"
	"strings"
)

// SkipCompressionForSSE wraps a compression middleware handler to skip
// compression for SSE (Server-Sent Events) endpoints.
// SSE requires unbuffered streaming; compression middleware interferes with flushing.
func SkipCompressionForSSE(compressionHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acceptHeader := r.Header.Get("Accept")
			if strings.Contains(acceptHeader, "text/event-stream") {
				next.ServeHTTP(w, r)
				return
			}

			// /v1/summarize/{id}/events is the only SSE subscription route.
			if strings.HasSuffix(r.URL.Path, "/events") && strings.Contains(r.URL.Path, "/summarize/") {
				next.ServeHTTP(w, r)
				return
			}

			compressedHandler.ServeHTTP(w, r)
		})
	}
}

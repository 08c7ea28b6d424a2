package middleware

import (
	"net/http"
	"strings"

	"bndy-backend/pkg/utils"
)

// ContentTypeJSON rejects write requests whose body is not JSON. The
// calendar import endpoint is exempt: it takes text/calendar payloads.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}
			if !strings.HasPrefix(contentType, "application/json") &&
				!strings.HasPrefix(contentType, "text/calendar") {
				utils.WriteBadRequestResponse(w, "Content-Type must be application/json or text/calendar")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// MaxBodySize caps the request body size.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

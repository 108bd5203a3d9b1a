package middleware

import (
	"net/http"
	"strings"
)

// CORS allows cross-origin requests from a single origin. Requests from
// other origins pass through without CORS headers; an empty origin
// disables the middleware. "*" allows any origin without credentials.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	allowedOrigin = strings.TrimRight(strings.TrimSpace(allowedOrigin), "/")

	return func(next http.Handler) http.Handler {
		if allowedOrigin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && (allowedOrigin == "*" || strings.EqualFold(origin, allowedOrigin)) {
				// Credentials are only allowed for a named origin.
				if allowedOrigin == "*" {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				} else {
					h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

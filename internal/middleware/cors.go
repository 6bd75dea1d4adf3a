// Package middleware provides HTTP middleware for the chatpad API.
package middleware

import "net/http"

// CORS returns middleware that allows cross-origin requests from the
// given origin. An empty origin allows any origin without credentials,
// which is only appropriate for local development.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case allowedOrigin != "" && origin == allowedOrigin:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				// Credentials only for the explicit origin; pairing them
				// with a wildcard-echoed origin enables CSRF.
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			case allowedOrigin == "" && origin != "":
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package httpapi

import (
	"net/http"
	"strings"
)

// BearerAuth validates the OpenAI-dialect Authorization: Bearer <key>
// header. When expectedKey is empty the server accepts all requests
// (first-run / no-key-configured scenario).
func BearerAuth(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == expectedKey {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, "openai", err401())
		})
	}
}

// APIKeyHeaderAuth validates the Anthropic-dialect x-api-key header.
func APIKeyHeaderAuth(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("x-api-key") == expectedKey {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, "anthropic", err401())
		})
	}
}

// OptionalAdminAuth gates admin routes behind HTTP basic auth when a
// password is configured, and passes every request through otherwise.
func OptionalAdminAuth(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, pass, ok := r.BasicAuth()
			if !ok || pass != password {
				w.Header().Set("WWW-Authenticate", `Basic realm="gateway admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

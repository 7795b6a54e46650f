package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"accession/internal/api"
)

// authMiddleware validates bearer tokens. With an empty token every request
// passes through.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, api.ErrorBody{Error: api.ErrorDetail{
					Code:    "unauthorized",
					Message: "missing or invalid bearer token",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

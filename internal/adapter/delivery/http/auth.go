package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

const bearerPrefix = "Bearer "

// requireAdminToken rejects requests whose Authorization header does not carry token.
// Both "Bearer <token>" and the bare token are accepted.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("Authorization")
			if len(got) > len(bearerPrefix) && strings.EqualFold(got[:len(bearerPrefix)], bearerPrefix) {
				got = got[len(bearerPrefix):]
			}

			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="shortlink"`)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, unauthorizedResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/constants"
)

// SuperadminAuth grants the superadmin role to requests bearing the
// configured token. It never rejects: requests without a valid token simply
// carry no role.
func SuperadminAuth(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				if presented, ok := bearerToken(r); ok &&
					subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
					if params, ok := composables.UseParams(r.Context()); ok {
						params.AuthRole = constants.RoleSuperadmin
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/pkg/composables"
)

// RequestParams captures per-request transport details for downstream use.
func RequestParams(realIPHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get(realIPHeader)
			if ip == "" {
				ip = r.RemoteAddr
			}
			params := &composables.Params{
				IP:        ip,
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}

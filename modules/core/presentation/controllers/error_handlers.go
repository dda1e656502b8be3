package controllers

import (
	"net/http"

	"github.com/iota-uz/tenancy/pkg/httpapi"
)

// NotFound is the router-level fallback for unmatched paths.
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "router.not_found", "resource not found", nil)
	})
}

// MethodNotAllowed answers matched paths with an unsupported method.
func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "router.method_not_allowed", "method not allowed", nil)
	})
}

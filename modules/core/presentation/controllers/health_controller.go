package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

// HealthController exposes liveness and readiness probes.
type HealthController struct {
	app      application.Application
	basePath string
	started  time.Time
}

func NewHealthController(app application.Application) application.Controller {
	return &HealthController{
		app:      app,
		basePath: "/health",
		started:  time.Now(),
	}
}

func (c *HealthController) Key() string {
	return c.basePath
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.live).Methods(http.MethodGet)
	r.HandleFunc(c.basePath+"/ready", c.ready).Methods(http.MethodGet)
}

func (c *HealthController) live(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(c.started).Round(time.Second).String(),
	})
}

func (c *HealthController) ready(w http.ResponseWriter, r *http.Request) {
	if pool := c.app.DB(); pool != nil {
		if err := pool.Ping(r.Context()); err != nil {
			_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "health.db_unreachable", "database unreachable", nil)
			return
		}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

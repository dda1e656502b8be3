package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/composables"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

// ItemsController serves inventory items out of the tenant's isolated store.
type ItemsController struct {
	app      application.Application
	basePath string
}

func NewItemsController(app application.Application) application.Controller {
	return &ItemsController{app: app, basePath: "/items"}
}

func (c *ItemsController) Key() string {
	return c.basePath
}

func (c *ItemsController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.list).Methods(http.MethodGet)
	r.HandleFunc(c.basePath, c.create).Methods(http.MethodPost)
	r.HandleFunc(c.basePath+"/{id}", c.get).Methods(http.MethodGet)
	r.HandleFunc(c.basePath+"/{id}", c.delete).Methods(http.MethodDelete)
}

func (c *ItemsController) list(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "item")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	records, err := model.List(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, records)
}

func (c *ItemsController) get(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "item")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	record, err := model.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "inventory.item_not_found", "item not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, record)
}

type createItemRequest struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (c *ItemsController) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "inventory.invalid_body", "invalid request body", nil)
		return
	}
	if req.SKU == "" || req.Name == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "inventory.invalid_body", "sku and name are required", nil)
		return
	}
	model, err := c.app.Tenants().Model(r.Context(), "item")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	id := uuid.New().String()
	now := time.Now()
	if err := model.Insert(r.Context(), []any{id, req.SKU, req.Name, req.Quantity, now, now}); err != nil {
		respondStoreError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (c *ItemsController) delete(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "item")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if err := model.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if logger, ok := composables.TryUseLogger(r.Context()); ok {
		logger.WithError(err).Error("tenant store operation failed")
	}
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "inventory.store_error", "tenant store unavailable", nil)
}

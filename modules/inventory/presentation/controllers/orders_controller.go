package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/httpapi"
)

type OrdersController struct {
	app      application.Application
	basePath string
}

func NewOrdersController(app application.Application) application.Controller {
	return &OrdersController{app: app, basePath: "/orders"}
}

func (c *OrdersController) Key() string {
	return c.basePath
}

func (c *OrdersController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.list).Methods(http.MethodGet)
	r.HandleFunc(c.basePath, c.create).Methods(http.MethodPost)
	r.HandleFunc(c.basePath+"/{id}", c.get).Methods(http.MethodGet)
}

func (c *OrdersController) list(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "order")
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

func (c *OrdersController) get(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "order")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	record, err := model.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "inventory.order_not_found", "order not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, record)
}

type createOrderRequest struct {
	Number string  `json:"number"`
	Status string  `json:"status"`
	Total  float64 `json:"total"`
}

func (c *OrdersController) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "inventory.invalid_body", "invalid request body", nil)
		return
	}
	if req.Number == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "inventory.invalid_body", "number is required", nil)
		return
	}
	if req.Status == "" {
		req.Status = "new"
	}
	model, err := c.app.Tenants().Model(r.Context(), "order")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	id := uuid.New().String()
	now := time.Now()
	if err := model.Insert(r.Context(), []any{id, req.Number, req.Status, req.Total, now, now}); err != nil {
		respondStoreError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

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

type CustomersController struct {
	app      application.Application
	basePath string
}

func NewCustomersController(app application.Application) application.Controller {
	return &CustomersController{app: app, basePath: "/customers"}
}

func (c *CustomersController) Key() string {
	return c.basePath
}

func (c *CustomersController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.list).Methods(http.MethodGet)
	r.HandleFunc(c.basePath, c.create).Methods(http.MethodPost)
	r.HandleFunc(c.basePath+"/{id}", c.get).Methods(http.MethodGet)
	r.HandleFunc(c.basePath+"/{id}", c.delete).Methods(http.MethodDelete)
}

func (c *CustomersController) list(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "customer")
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

func (c *CustomersController) get(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "customer")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	record, err := model.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "billing.customer_not_found", "customer not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, record)
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *CustomersController) create(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "billing.invalid_body", "invalid request body", nil)
		return
	}
	if req.Name == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "billing.invalid_body", "name is required", nil)
		return
	}
	model, err := c.app.Tenants().Model(r.Context(), "customer")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	id := uuid.New().String()
	now := time.Now()
	if err := model.Insert(r.Context(), []any{id, req.Name, req.Email, now, now}); err != nil {
		respondStoreError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (c *CustomersController) delete(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "customer")
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

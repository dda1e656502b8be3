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

// InvoicesController serves invoices out of the tenant's isolated store.
type InvoicesController struct {
	app      application.Application
	basePath string
}

func NewInvoicesController(app application.Application) application.Controller {
	return &InvoicesController{app: app, basePath: "/invoices"}
}

func (c *InvoicesController) Key() string {
	return c.basePath
}

func (c *InvoicesController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.list).Methods(http.MethodGet)
	r.HandleFunc(c.basePath, c.create).Methods(http.MethodPost)
	r.HandleFunc(c.basePath+"/{id}", c.get).Methods(http.MethodGet)
}

func (c *InvoicesController) list(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "invoice")
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

func (c *InvoicesController) get(w http.ResponseWriter, r *http.Request) {
	model, err := c.app.Tenants().Model(r.Context(), "invoice")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	record, err := model.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "billing.invoice_not_found", "invoice not found", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, record)
}

type createInvoiceRequest struct {
	Number   string  `json:"number"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (c *InvoicesController) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "billing.invalid_body", "invalid request body", nil)
		return
	}
	if req.Number == "" || req.Currency == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "billing.invalid_body", "number and currency are required", nil)
		return
	}
	model, err := c.app.Tenants().Model(r.Context(), "invoice")
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	id := uuid.New().String()
	if err := model.Insert(r.Context(), []any{id, req.Number, req.Amount, req.Currency, time.Now(), nil}); err != nil {
		respondStoreError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if logger, ok := composables.TryUseLogger(r.Context()); ok {
		logger.WithError(err).Error("tenant store operation failed")
	}
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "billing.store_error", "tenant store unavailable", nil)
}

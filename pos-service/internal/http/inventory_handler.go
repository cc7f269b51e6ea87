package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/service"
	"github.com/go-chi/chi/v5"
)

type InventoryService interface {
	Inventory(ctx context.Context) (*service.InventoryView, error)
	SetQuantity(ctx context.Context, id domain.ProductID, q int) (int, error)
	IncrementQuantity(ctx context.Context, id domain.ProductID) (int, error)
	DecrementQuantity(ctx context.Context, id domain.ProductID) (int, error)
	SaveInventory(ctx context.Context) (*service.InventoryView, error)
	SyncInventory(ctx context.Context) (int, error)
}

type InventoryHandler struct {
	svc     InventoryService
	timeout time.Duration
}

func NewInventoryHandler(svc InventoryService, timeout time.Duration) *InventoryHandler {
	return &InventoryHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type SetQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type QuantityResponse struct {
	ProductID domain.ProductID `json:"product_id"`
	Quantity  int              `json:"quantity"`
}

type SyncResponse struct {
	Synced int `json:"synced"`
}

func productIDParam(w http.ResponseWriter, r *http.Request) (domain.ProductID, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "product_id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return "", false
	}
	return domain.ProductID(id), true
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.Inventory(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *InventoryHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Get product_id from URL path
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	// Parse request body
	var req SetQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate request
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	q, err := h.svc.SetQuantity(ctx, id, *req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, QuantityResponse{ProductID: id, Quantity: q})
}

func (h *InventoryHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.IncrementQuantity)
}

func (h *InventoryHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.DecrementQuantity)
}

func (h *InventoryHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.ProductID) (int, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	q, err := fn(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, QuantityResponse{ProductID: id, Quantity: q})
}

// Save persists the edited quantities.
func (h *InventoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.SaveInventory(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Sync pushes the saved quantities to the backend.
func (h *InventoryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.svc.SyncInventory(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SyncResponse{Synced: n})
}

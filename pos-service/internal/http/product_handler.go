package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/service"
)

type CatalogService interface {
	Products(ctx context.Context, refresh bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, f service.ProductForm) (string, error)
}

type ProductHandler struct {
	svc     CatalogService
	timeout time.Duration
}

func NewProductHandler(svc CatalogService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		svc:     svc,
		timeout: timeout,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	products, err := h.svc.Products(ctx, refresh)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Parse request body; validation happens in the service
	var form service.ProductForm
	if !decodeJSON(w, r, &form) {
		return
	}

	msg, err := h.svc.CreateProduct(ctx, form)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

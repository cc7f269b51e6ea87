package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/fjod/go_pos/pos-service/internal/service"
)

type CartService interface {
	Cart(ctx context.Context) (*service.CartView, error)
	AddToCart(ctx context.Context, id domain.ProductID) (*service.CartView, error)
	AdjustCartItem(ctx context.Context, id domain.ProductID, delta int) (*service.CartView, error)
	RemoveCartItem(ctx context.Context, id domain.ProductID) (*service.CartView, error)
	ClearCart(ctx context.Context) (*service.CartView, error)
	Checkout(ctx context.Context) (*sale.Result, error)
}

type CartHandler struct {
	svc     CartService
	timeout time.Duration
}

func NewCartHandler(svc CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID domain.FlexString `json:"product_id"`
}

type AdjustQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CheckoutResponse struct {
	Receipt  domain.Receipt `json:"receipt"`
	FileName string         `json:"file_name"`
	Text     string         `json:"text"`
}

// GetCart returns the cart in progress, starting one if needed.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.Cart(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Parse request body
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate request
	id := strings.TrimSpace(string(req.ProductID))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	view, err := h.svc.AddToCart(ctx, domain.ProductID(id))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Get product_id from URL path
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	// Parse request body
	var req AdjustQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.svc.AdjustCartItem(ctx, id, req.Delta)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.RemoveCartItem(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.ClearCart(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Checkout finalizes the sale. The receipt comes back as JSON unless the
// client asks for the document.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Checkout(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	// Pick the receipt format from the Accept header
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, res.ContentType) && res.ContentType != "application/json":
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Receipt.FileName()))
		w.WriteHeader(http.StatusCreated)
		w.Write(res.Document)
	case strings.Contains(accept, "text/plain"):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(res.Receipt.Text()))
	default:
		respondJSON(w, http.StatusCreated, CheckoutResponse{
			Receipt:  res.Receipt,
			FileName: res.Receipt.FileName(),
			Text:     res.Receipt.Text(),
		})
	}
}

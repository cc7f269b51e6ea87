package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Terminal is everything the API exposes for one device.
type Terminal interface {
	SessionService
	CatalogService
	InventoryService
	CartService
	DashboardService
}

type RouterConfig struct {
	Timeout time.Duration
	// BackendState reports the circuit breaker state on /health. Optional.
	BackendState func() string
}

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

func NewRouter(t Terminal, cfg RouterConfig) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	sessionHandler := NewSessionHandler(t, timeout)
	productHandler := NewProductHandler(t, timeout)
	inventoryHandler := NewInventoryHandler(t, timeout)
	cartHandler := NewCartHandler(t, timeout)
	dashboardHandler := NewDashboardHandler(t, timeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if cfg.BackendState != nil {
			resp.Backend = cfg.BackendState()
		}
		respondJSON(w, http.StatusOK, resp)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stores", sessionHandler.Stores)
		r.Post("/employees", sessionHandler.Register)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", sessionHandler.Login)
			r.Get("/", sessionHandler.Current)
			r.Delete("/", sessionHandler.Logout)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventoryHandler.Get)
			r.Post("/save", inventoryHandler.Save)
			r.Post("/sync", inventoryHandler.Sync)
			r.Put("/{product_id}", inventoryHandler.SetQuantity)
			r.Post("/{product_id}/increment", inventoryHandler.Increment)
			r.Post("/{product_id}/decrement", inventoryHandler.Decrement)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/checkout", cartHandler.Checkout)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Years)
			r.Get("/{year}", dashboardHandler.Year)
		})
		r.Post("/recommendations", dashboardHandler.Recommend)
	})

	return r
}

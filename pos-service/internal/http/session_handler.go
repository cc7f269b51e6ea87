package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/session"
)

type SessionService interface {
	Stores(ctx context.Context) ([]domain.Store, error)
	Register(ctx context.Context, r session.Registration) (string, error)
	Login(ctx context.Context, username, password string) (*domain.Employee, error)
	CurrentEmployee(ctx context.Context) (*domain.Employee, error)
	Logout(ctx context.Context) error
}

type SessionHandler struct {
	svc     SessionService
	timeout time.Duration
}

func NewSessionHandler(svc SessionService, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type LoginRequestDTO struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
}

type RegisterRequestDTO struct {
	session.Registration
	// Password is accepted as an alias of contrasena.
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) Stores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stores, err := h.svc.Stores(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stores)
}

func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Parse request body
	var req RegisterRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Registration.Password == "" {
		req.Registration.Password = req.Password
	}

	msg, err := h.svc.Register(ctx, req.Registration)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Parse request body
	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	emp, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	emp, err := h.svc.CurrentEmployee(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

// Logout ends the session and drops the cart in progress.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

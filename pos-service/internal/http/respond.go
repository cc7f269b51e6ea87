package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/fjod/go_pos/pkg/circuitbreaker"
	"github.com/fjod/go_pos/pos-service/internal/cart"
	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/fjod/go_pos/pos-service/internal/service"
	"github.com/fjod/go_pos/pos-service/internal/session"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps domain and backend errors onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
		return
	}

	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		handleBackendStatus(w, statusErr)
		return
	}

	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, session.ErrNoSession):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, session.ErrNoStore), errors.Is(err, ledger.ErrNoStore):
		status, code = http.StatusForbidden, "no_store"
	case errors.Is(err, cart.ErrOutOfStock):
		status, code = http.StatusConflict, "out_of_stock"
	case errors.Is(err, cart.ErrInvalidDelta):
		status, code = http.StatusBadRequest, "invalid_delta"
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, service.ErrProductNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, cart.ErrFinalizing):
		status, code = http.StatusConflict, "sale_in_progress"
	case errors.Is(err, sale.ErrEmptyCart):
		status, code = http.StatusConflict, "empty_cart"
	case errors.Is(err, sale.ErrPersist):
		status, code = http.StatusServiceUnavailable, "persist_failed"
	case errors.Is(err, dashboard.ErrYearNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, dashboard.ErrNoData):
		status, code = http.StatusServiceUnavailable, "no_dashboard_data"
	case errors.Is(err, gateway.ErrInvalidProduct):
		status, code = http.StatusBadGateway, "invalid_catalog"
	case errors.Is(err, gateway.ErrInvalidResponse):
		status, code = http.StatusBadGateway, "bad_gateway"
	case errors.Is(err, circuitbreaker.ErrOpen):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	case isNetError(err):
		status, code = http.StatusBadGateway, "backend_unavailable"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err, "request_id", getRequestID(r.Context()))
	}
	respondJSON(w, status, ErrorResponse{Error: http.StatusText(status), Code: code, Details: err.Error()})
}

func handleBackendStatus(w http.ResponseWriter, e *gateway.StatusError) {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials", Code: "unauthenticated", Details: e.Body})
	case e.StatusCode >= 400 && e.StatusCode < 500:
		respondJSON(w, e.StatusCode, ErrorResponse{Error: "backend rejected the request", Code: "backend_rejected", Details: e.Body})
	default:
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "backend error", Code: "bad_gateway", Details: e.Body})
	}
}

func isNetError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

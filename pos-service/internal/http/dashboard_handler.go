package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/go-chi/chi/v5"
)

type DashboardService interface {
	DashboardYears() []string
	DashboardYear(year string) (json.RawMessage, *dashboard.Analysis, error)
	Recommend(ctx context.Context, prompt string) (string, error)
}

type DashboardHandler struct {
	svc     DashboardService
	timeout time.Duration
}

func NewDashboardHandler(svc DashboardService, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type YearsResponse struct {
	Years []string `json:"years"`
}

type YearResponse struct {
	Year     string              `json:"year"`
	Data     json.RawMessage     `json:"data"`
	Analysis *dashboard.Analysis `json:"analysis,omitempty"`
}

type RecommendRequestDTO struct {
	Prompt string `json:"prompt"`
}

type RecommendResponse struct {
	Recommendation string `json:"recommendation"`
}

func (h *DashboardHandler) Years(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, YearsResponse{Years: h.svc.DashboardYears()})
}

func (h *DashboardHandler) Year(w http.ResponseWriter, r *http.Request) {
	year := chi.URLParam(r, "year")
	raw, analysis, err := h.svc.DashboardYear(year)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, YearResponse{Year: year, Data: raw, Analysis: analysis})
}

func (h *DashboardHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RecommendRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	text, err := h.svc.Recommend(ctx, req.Prompt)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RecommendResponse{Recommendation: text})
}

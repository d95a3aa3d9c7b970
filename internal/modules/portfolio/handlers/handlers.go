// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/portfolio"
)

// PortfolioService is the subset of *portfolio.Service the handlers use
type PortfolioService interface {
	Moments(ctx context.Context, req portfolio.Request) (*portfolio.Moments, error)
	Statistics(ctx context.Context, req portfolio.Request, weights []float64) (*portfolio.StatisticsReport, error)
	RandomPortfolios(ctx context.Context, req portfolio.Request, count int, seed *uint64) ([]domain.PortfolioSample, error)
	Optimize(ctx context.Context, req portfolio.Request, opts portfolio.OptimizeOptions) (*portfolio.Analysis, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// windowRequest is the instrument list and date window shared by all endpoints.
type windowRequest struct {
	Instruments []string `json:"instruments"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
}

func (wr windowRequest) toRequest() (portfolio.Request, error) {
	start, err := time.Parse(domain.DateLayout, wr.Start)
	if err != nil {
		return portfolio.Request{}, domain.InvalidInputf("start must be YYYY-MM-DD, got %q", wr.Start)
	}
	end, err := time.Parse(domain.DateLayout, wr.End)
	if err != nil {
		return portfolio.Request{}, domain.InvalidInputf("end must be YYYY-MM-DD, got %q", wr.End)
	}
	req := portfolio.Request{Instruments: wr.Instruments, Start: start, End: end}
	return req, req.Validate()
}

type statisticsRequest struct {
	windowRequest
	Weights []float64 `json:"weights"`
}

type randomRequest struct {
	windowRequest
	Count int     `json:"count"`
	Seed  *uint64 `json:"seed"`
}

type optimizeRequest struct {
	windowRequest
	Samples        int     `json:"samples"`
	Seed           *uint64 `json:"seed"`
	IncludeSamples bool    `json:"include_samples"`
}

// HandleMoments handles POST /api/portfolio/moments
func (h *Handler) HandleMoments(w http.ResponseWriter, r *http.Request) {
	var body windowRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, err)
		return
	}

	moments, err := h.service.Moments(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, moments)
}

// HandleStatistics handles POST /api/portfolio/statistics
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	var body statisticsRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.service.Statistics(r.Context(), req, body.Weights)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, report)
}

// HandleRandom handles POST /api/portfolio/random
func (h *Handler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	var body randomRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if body.Count < 0 {
		h.writeError(w, domain.InvalidInputf("count must not be negative, got %d", body.Count))
		return
	}

	samples, err := h.service.RandomPortfolios(r.Context(), req, body.Count, body.Seed)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data := map[string]interface{}{
		"instruments": req.Instruments,
		"samples":     samples,
	}
	if best, ok := portfolio.BestSample(samples); ok {
		data["best_sample"] = best
	}
	h.writeData(w, data)
}

// HandleOptimize handles POST /api/portfolio/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, err)
		return
	}

	analysis, err := h.service.Optimize(r.Context(), req, portfolio.OptimizeOptions{
		Samples: body.Samples,
		Seed:    body.Seed,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !body.IncludeSamples {
		analysis.Samples = nil
	}
	h.writeData(w, analysis)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, domain.InvalidInputf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOptimizationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := map[string]interface{}{
		"error": err.Error(),
	}

	var failed *domain.OptimizationFailedError
	if errors.As(err, &failed) {
		body["status"] = failed.Status
		body["last_iterate"] = failed.LastIterate
	}
	var gap *domain.GapError
	if errors.As(err, &gap) {
		dates := make([]string, len(gap.Dates))
		for i, d := range gap.Dates {
			dates[i] = d.Format(domain.DateLayout)
		}
		body["instrument"] = gap.Instrument
		body["missing_dates"] = dates
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Portfolio request failed")
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg("Portfolio request rejected")
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

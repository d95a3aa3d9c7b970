// Package handlers provides HTTP handlers for price path simulations.
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
	"github.com/aristath/markowitz/internal/modules/simulation"
)

// Handler handles simulation HTTP requests
type Handler struct {
	prices  portfolio.PriceProvider
	workers int
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler. prices may be nil, in which
// case calibrated simulations are unavailable.
func NewHandler(prices portfolio.PriceProvider, workers int, log zerolog.Logger) *Handler {
	return &Handler{
		prices:  prices,
		workers: workers,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

type wienerRequest struct {
	Steps int     `json:"steps"`
	Dt    float64 `json:"dt"`
	Seed  *uint64 `json:"seed"`
}

type gbmRequest struct {
	S0           float64 `json:"s0"`
	Mu           float64 `json:"mu"`
	Sigma        float64 `json:"sigma"`
	Steps        int     `json:"steps"`
	Paths        int     `json:"paths"`
	Seed         *uint64 `json:"seed"`
	IncludePaths bool    `json:"include_paths"`
}

type calibratedRequest struct {
	Instrument   string  `json:"instrument"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Steps        int     `json:"steps"`
	Paths        int     `json:"paths"`
	Seed         *uint64 `json:"seed"`
	IncludePaths bool    `json:"include_paths"`
}

// HandleWiener handles POST /api/simulation/wiener
func (h *Handler) HandleWiener(w http.ResponseWriter, r *http.Request) {
	var body wienerRequest
	if !h.decode(w, r, &body) {
		return
	}
	if body.Steps == 0 {
		body.Steps = simulation.DefaultWienerSteps
	}
	if body.Dt == 0 {
		body.Dt = simulation.DefaultWienerDt
	}

	path, err := simulation.WienerProcess(simulation.WienerOptions{
		Steps: body.Steps,
		Dt:    body.Dt,
		Seed:  body.Seed,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, path)
}

// HandleGBM handles POST /api/simulation/gbm
func (h *Handler) HandleGBM(w http.ResponseWriter, r *http.Request) {
	var body gbmRequest
	if !h.decode(w, r, &body) {
		return
	}

	result, err := h.simulate(r.Context(), simulation.GBMOptions{
		S0:    body.S0,
		Mu:    body.Mu,
		Sigma: body.Sigma,
		Steps: body.Steps,
		Paths: body.Paths,
		Seed:  body.Seed,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !body.IncludePaths {
		result.Paths = nil
	}
	h.writeData(w, result)
}

// HandleCalibratedGBM handles POST /api/simulation/gbm/calibrated. Drift and
// volatility are estimated from the instrument's history and the walk
// starts at its last price.
func (h *Handler) HandleCalibratedGBM(w http.ResponseWriter, r *http.Request) {
	var body calibratedRequest
	if !h.decode(w, r, &body) {
		return
	}
	if h.prices == nil {
		h.writeError(w, domain.DataUnavailablef("no price source configured"))
		return
	}

	start, err := time.Parse(domain.DateLayout, body.Start)
	if err != nil {
		h.writeError(w, domain.InvalidInputf("start must be YYYY-MM-DD, got %q", body.Start))
		return
	}
	end, err := time.Parse(domain.DateLayout, body.End)
	if err != nil {
		h.writeError(w, domain.InvalidInputf("end must be YYYY-MM-DD, got %q", body.End))
		return
	}
	req := portfolio.Request{Instruments: []string{body.Instrument}, Start: start, End: end}
	if err := req.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	series, err := h.prices.FetchPrices(r.Context(), body.Instrument, start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	mu, sigma, err := simulation.EstimateParameters(series.Prices())
	if err != nil {
		h.writeError(w, err)
		return
	}
	last, _ := series.Last()

	result, err := h.simulate(r.Context(), simulation.GBMOptions{
		S0:    last.Price,
		Mu:    mu,
		Sigma: sigma,
		Steps: body.Steps,
		Paths: body.Paths,
		Seed:  body.Seed,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !body.IncludePaths {
		result.Paths = nil
	}

	h.writeData(w, map[string]interface{}{
		"instrument": body.Instrument,
		"as_of":      last.Date.Format(domain.DateLayout),
		"s0":         last.Price,
		"mu":         mu,
		"sigma":      sigma,
		"simulation": result,
	})
}

func (h *Handler) simulate(ctx context.Context, opts simulation.GBMOptions) (*simulation.GBMResult, error) {
	if opts.Steps == 0 {
		opts.Steps = simulation.DefaultGBMSteps
	}
	if opts.Paths == 0 {
		opts.Paths = simulation.DefaultGBMPaths
	}
	opts.Workers = h.workers
	return simulation.GeometricBrownianMotion(ctx, opts)
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

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDataUnavailable):
		status = http.StatusBadGateway
	default:
		h.log.Error().Err(err).Msg("Simulation failed")
	}
	h.writeJSON(w, status, map[string]interface{}{"error": err.Error()})
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

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error taxonomy shared by the pipeline, the data providers and the API layer.
var (
	// ErrInvalidInput marks malformed series, weights or parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOptimizationFailed marks a solver that terminated without converging.
	ErrOptimizationFailed = errors.New("optimization failed")
	// ErrDataUnavailable marks failures of the market data collaborator.
	ErrDataUnavailable = errors.New("data unavailable")
)

// InvalidInputf builds an error wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// DataUnavailablef builds an error wrapping ErrDataUnavailable.
func DataUnavailablef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// OptimizationFailedError carries the solver's termination status and the
// last iterate it reached.
type OptimizationFailedError struct {
	Status      string
	LastIterate []float64
	Err         error
}

func (e *OptimizationFailedError) Error() string {
	msg := fmt.Sprintf("optimization failed: status=%s", e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrOptimizationFailed) match.
func (e *OptimizationFailedError) Is(target error) bool {
	return target == ErrOptimizationFailed
}

func (e *OptimizationFailedError) Unwrap() error {
	return e.Err
}

// GapError reports dates for which an instrument has no usable price.
// Gaps are never imputed.
type GapError struct {
	Instrument string
	Dates      []time.Time
}

func (e *GapError) Error() string {
	shown := e.Dates
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, d := range shown {
		parts[i] = d.Format(DateLayout)
	}
	suffix := ""
	if len(e.Dates) > len(shown) {
		suffix = fmt.Sprintf(" (+%d more)", len(e.Dates)-len(shown))
	}
	return fmt.Sprintf("data unavailable: %s has %d gap(s) at %s%s",
		e.Instrument, len(e.Dates), strings.Join(parts, ", "), suffix)
}

// Is lets errors.Is(err, ErrDataUnavailable) match.
func (e *GapError) Is(target error) bool {
	return target == ErrDataUnavailable
}

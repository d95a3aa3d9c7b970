package portfolio

import (
	"context"
	"time"

	"github.com/aristath/markowitz/internal/domain"
)

// PriceProvider supplies adjusted close prices for one instrument over
// [start, end). Implementations live in internal/marketdata and
// internal/clients; failures are expected to wrap domain.ErrDataUnavailable.
type PriceProvider interface {
	FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error)
}

// SeriesAligner reconciles the date axes of several price series. It must
// report gaps rather than impute them.
type SeriesAligner func(series []domain.PriceSeries) ([]domain.PriceSeries, error)

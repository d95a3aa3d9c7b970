package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/domain"
)

// CSVProvider reads daily closes from <dir>/<INSTRUMENT>.csv. Files need a
// header with a Date column (YYYY-MM-DD) and either "Adj Close" or "Close";
// "Adj Close" wins when both are present. Empty price cells are gaps.
type CSVProvider struct {
	dir string
	log zerolog.Logger
}

// NewCSVProvider creates a provider rooted at dir.
func NewCSVProvider(dir string, log zerolog.Logger) *CSVProvider {
	return &CSVProvider{
		dir: dir,
		log: log.With().Str("client", "csv").Logger(),
	}
}

// Name identifies the source in cache keys.
func (p *CSVProvider) Name() string {
	return "csv"
}

// FetchPrices implements Provider.
func (p *CSVProvider) FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(instrument)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PriceSeries{}, domain.DataUnavailablef("no price file for %s at %s", instrument, path)
		}
		return domain.PriceSeries{}, fmt.Errorf("%w: open %s: %v", domain.ErrDataUnavailable, path, err)
	}
	defer f.Close()

	series, gaps, err := parseCSV(f, instrument)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	if inWindow := clipDates(gaps, start, end); len(inWindow) > 0 {
		return domain.PriceSeries{}, &domain.GapError{Instrument: instrument, Dates: inWindow}
	}
	series.Points = clip(series.Points, start, end)
	if len(series.Points) == 0 {
		return domain.PriceSeries{}, domain.DataUnavailablef("no prices for %s between %s and %s",
			instrument, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}

	p.log.Debug().
		Str("instrument", instrument).
		Int("points", len(series.Points)).
		Msg("Loaded prices from CSV")

	return series, nil
}

// parseCSV decodes one price file. Rows are sorted by date and a date that
// appears twice is an error. Dates with an empty price are returned as gaps
// for the caller to clip to its window.
func parseCSV(r io.Reader, instrument string) (domain.PriceSeries, []time.Time, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: read header: %v", instrument, err)
	}

	dateCol, closeCol, adjCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		case "adj close", "adj_close", "adjclose":
			adjCol = i
		}
	}
	priceCol := closeCol
	if adjCol >= 0 {
		priceCol = adjCol
	}
	if dateCol < 0 || priceCol < 0 {
		return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: header needs Date and Close columns, got %v", instrument, header)
	}

	series := domain.PriceSeries{Instrument: instrument}
	seen := make(map[time.Time]bool)
	var gaps []time.Time

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: line %d: %v", instrument, line, err)
		}

		date, err := time.Parse(domain.DateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: line %d: bad date %q", instrument, line, record[dateCol])
		}
		if seen[date] {
			return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: duplicate date %s", instrument, record[dateCol])
		}
		seen[date] = true

		cell := strings.TrimSpace(record[priceCol])
		if cell == "" || strings.EqualFold(cell, "null") || strings.EqualFold(cell, "nan") {
			gaps = append(gaps, date)
			continue
		}
		price, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return domain.PriceSeries{}, nil, domain.DataUnavailablef("%s: line %d: bad price %q", instrument, line, cell)
		}
		series.Points = append(series.Points, domain.PricePoint{Date: date, Price: price})
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Before(gaps[j]) })
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})
	return series, gaps, nil
}

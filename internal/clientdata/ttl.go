package clientdata

import "time"

// TTL constants for cached market data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily closes only change once per trading day
	TTLPriceSeries = 24 * time.Hour

	// Windows ending before today never change again
	TTLHistoricalPriceSeries = 30 * 24 * time.Hour
)

// PriceTTL picks the TTL for a window ending at end. A window that closed
// before today is immutable and is kept for TTLHistoricalPriceSeries.
func PriceTTL(end, now time.Time, base time.Duration) time.Duration {
	if base <= 0 {
		base = TTLPriceSeries
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if end.Before(today) && base < TTLHistoricalPriceSeries {
		return TTLHistoricalPriceSeries
	}
	return base
}

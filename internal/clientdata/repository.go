// Package clientdata provides persistent caching for market data client responses.
// Price series are stored as msgpack blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/markowitz/internal/domain"
)

// AllTables lists all cache tables for cleanup operations.
var AllTables = []string{
	"price_series",
}

// Repository provides cache operations for price series.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// PriceKey builds the cache key for one instrument and window of a source.
func PriceKey(source, instrument string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		strings.ToLower(source),
		strings.ToUpper(instrument),
		start.Format(domain.DateLayout),
		end.Format(domain.DateLayout))
}

// Entry is a cached price series with its freshness metadata.
type Entry struct {
	Series    domain.PriceSeries
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry has not yet expired at t.
func (e *Entry) Fresh(t time.Time) bool {
	return e.ExpiresAt.After(t)
}

// Store saves a series with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(key string, series domain.PriceSeries, ttl time.Duration) error {
	data, err := msgpack.Marshal(&series)
	if err != nil {
		return fmt.Errorf("failed to marshal price series: %w", err)
	}

	now := r.now()
	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO price_series (cache_key, instrument, data, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		key, strings.ToUpper(series.Instrument), data, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store price series %s: %w", key, err)
	}

	return nil
}

// GetIfFresh returns the series only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(key string) (*domain.PriceSeries, error) {
	entry, err := r.Get(key)
	if err != nil || entry == nil {
		return nil, err
	}
	if !entry.Fresh(r.now()) {
		return nil, nil
	}
	return &entry.Series, nil
}

// Get returns the entry regardless of expiration status.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(key string) (*Entry, error) {
	var (
		data      []byte
		fetchedAt int64
		expiresAt int64
	)
	err := r.db.QueryRow(
		"SELECT data, fetched_at, expires_at FROM price_series WHERE cache_key = ?", key,
	).Scan(&data, &fetchedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price series %s: %w", key, err)
	}

	entry := &Entry{
		FetchedAt: time.Unix(fetchedAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}
	if err := msgpack.Unmarshal(data, &entry.Series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price series %s: %w", key, err)
	}
	// msgpack decodes timestamps in the local zone; dates are stored as UTC days
	for i := range entry.Series.Points {
		entry.Series.Points[i].Date = entry.Series.Points[i].Date.UTC()
	}
	return entry, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM price_series WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete price series %s: %w", key, err)
	}
	return nil
}

// DeleteInstrument removes every cached window for an instrument, matched
// case-insensitively. Returns the number of rows deleted.
func (r *Repository) DeleteInstrument(instrument string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM price_series WHERE instrument = ?", strings.ToUpper(instrument))
	if err != nil {
		return 0, fmt.Errorf("failed to delete price series for %s: %w", instrument, err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if !validTable(table) {
		return 0, fmt.Errorf("invalid table name: %s", table)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.Exec(query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}

	return results, nil
}

// Count returns the number of cached series, fresh or not.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM price_series").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count price series: %w", err)
	}
	return n, nil
}

func validTable(table string) bool {
	for _, t := range AllTables {
		if t == table {
			return true
		}
	}
	return false
}

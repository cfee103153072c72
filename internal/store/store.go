package store

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/openrange-trading/openrange/internal/types"
)

// FetchSource records where a resolved data request was served from.
type FetchSource string

const (
	FetchSourceAPI   FetchSource = "api"
	FetchSourceCache FetchSource = "cache"
)

// FetchLogEntry is one row of the fetch audit log.
type FetchLogEntry struct {
	Symbol      string
	Start       time.Time
	End         time.Time
	Interval    types.Interval
	Source      FetchSource
	RecordCount int
	FetchedAt   time.Time
}

// CachedRange is the earliest and latest cached bar timestamp for a
// (symbol, interval) pair.
type CachedRange struct {
	Earliest time.Time
	Latest   time.Time
}

// SymbolStats summarizes cache coverage for one (symbol, interval) pair.
type SymbolStats struct {
	Symbol   string
	Interval types.Interval
	BarCount int64
	Earliest time.Time
	Latest   time.Time
}

// BarStore is the persistent cache for intraday bars plus the fetch audit log.
type BarStore interface {
	// Setup creates the tables and indexes. It is idempotent.
	Setup(ctx context.Context) error
	// SaveBars inserts bars for a symbol and interval, skipping rows that are
	// already cached. Returns the number of rows actually inserted.
	SaveBars(ctx context.Context, symbol string, interval types.Interval, bars []types.Bar) (int64, error)
	// GetBars returns cached bars in [start, end], ordered by timestamp ascending.
	GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
	// CountBars returns the number of cached bars in [start, end].
	CountBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) (int64, error)
	// CachedRange returns the cached timestamp range for a symbol, or None
	// when nothing is cached.
	CachedRange(ctx context.Context, symbol string, interval types.Interval) (optional.Option[CachedRange], error)
	// RecordFetch appends a row to the fetch audit log.
	RecordFetch(ctx context.Context, entry FetchLogEntry) error
	// FetchHistory returns the most recent audit rows for a symbol, newest first.
	// An empty symbol matches all symbols.
	FetchHistory(ctx context.Context, symbol string, limit int) ([]FetchLogEntry, error)
	// Stats returns per-symbol cache coverage.
	Stats(ctx context.Context) ([]SymbolStats, error)
	// Close releases the underlying connection pool.
	Close() error
}

// Package cache implements the read-through resolver that serves bar
// requests from the PostgreSQL store and falls back to the remote
// provider on a miss.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/provider"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// Result is the outcome of a resolved bar request.
type Result struct {
	Bars   []types.Bar
	Source store.FetchSource
}

type Resolver struct {
	store    store.BarStore
	provider provider.Provider
	useCache bool
	logger   *logger.Logger
}

// NewResolver creates a resolver. When useCache is false every request goes
// straight to the provider and nothing is persisted.
func NewResolver(barStore store.BarStore, prov provider.Provider, useCache bool, log *logger.Logger) *Resolver {
	return &Resolver{
		store:    barStore,
		provider: prov,
		useCache: useCache,
		logger:   log,
	}
}

// GetBars resolves bars for a symbol in [start, end]. With caching enabled it
// checks the store first and only hits the provider on a miss, persisting
// whatever came back so the next request is served locally. A cache hit is
// any non-empty set of rows in the requested range.
func (r *Resolver) GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) (Result, error) {
	if end.Before(start) {
		return Result{}, errors.New(errors.ErrCodeInvalidDateRange, "end must not be before start")
	}

	if !r.useCache {
		bars, err := r.fetchRemote(ctx, symbol, interval, start, end)
		if err != nil {
			return Result{}, err
		}

		return Result{Bars: bars, Source: store.FetchSourceAPI}, nil
	}

	cached, err := r.store.GetBars(ctx, symbol, interval, start, end)
	if err != nil {
		return Result{}, errors.Wrapf(errors.ErrCodeCacheLookupFailed, err, "cache lookup failed for %s", symbol)
	}

	if len(cached) > 0 {
		r.logger.Debug("Cache hit",
			zap.String("symbol", symbol),
			zap.String("interval", string(interval)),
			zap.Int("bars", len(cached)))
		r.audit(ctx, symbol, interval, start, end, store.FetchSourceCache, len(cached))

		return Result{Bars: cached, Source: store.FetchSourceCache}, nil
	}

	r.logger.Debug("Cache miss, fetching from provider",
		zap.String("symbol", symbol),
		zap.String("provider", r.provider.Name()),
		zap.Time("start", start),
		zap.Time("end", end))

	bars, err := r.fetchRemote(ctx, symbol, interval, start, end)
	if err != nil {
		return Result{}, err
	}

	// Empty responses are recorded too, so repeated requests for a range the
	// provider has no data for are still visible in the audit log.
	if len(bars) > 0 {
		if _, err := r.store.SaveBars(ctx, symbol, interval, bars); err != nil {
			return Result{}, errors.Wrapf(errors.ErrCodeCachePersist, err, "failed to cache bars for %s", symbol)
		}
	}

	r.audit(ctx, symbol, interval, start, end, store.FetchSourceAPI, len(bars))

	return Result{Bars: bars, Source: store.FetchSourceAPI}, nil
}

// Bars resolves a request and returns just the bars, dropping the source
// attribution. Consumers that do not care where the data came from use this.
func (r *Resolver) Bars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	result, err := r.GetBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	return result.Bars, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bars, err := r.provider.IntradayBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	return bars, nil
}

// audit appends a fetch-log row. Audit failures are logged and swallowed so
// a broken audit trail never fails a data request.
func (r *Resolver) audit(ctx context.Context, symbol string, interval types.Interval, start, end time.Time, source store.FetchSource, count int) {
	err := r.store.RecordFetch(ctx, store.FetchLogEntry{
		Symbol:      symbol,
		Start:       start,
		End:         end,
		Interval:    interval,
		Source:      source,
		RecordCount: count,
	})
	if err != nil {
		r.logger.Warn("Failed to record fetch audit",
			zap.String("symbol", symbol),
			zap.Error(err))
	}
}

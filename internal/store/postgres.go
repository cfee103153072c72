package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// saveBatchSize limits the number of value tuples per INSERT statement.
const saveBatchSize = 500

type PostgresStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewPostgresStore opens a connection pool to the PostgreSQL cache database.
// The dsn parameter is a keyword/value or URL connection string.
// This is distinct from Setup() which creates the schema.
func NewPostgresStore(dsn string, logger *logger.Logger) (BarStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open database", err)
	}

	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Setup implements BarStore.
func (s *PostgresStore) Setup(ctx context.Context) error {
	s.logger.Debug("Setting up cache schema")

	statements := []string{
		`CREATE TABLE IF NOT EXISTS intraday_bars (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume BIGINT,
			interval TEXT NOT NULL,
			UNIQUE (symbol, ts, interval)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intraday_bars_symbol_ts
			ON intraday_bars (symbol, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_intraday_bars_symbol_interval_ts
			ON intraday_bars (symbol, interval, ts)`,
		`CREATE TABLE IF NOT EXISTS fetch_log (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			start_ts TIMESTAMPTZ NOT NULL,
			end_ts TIMESTAMPTZ NOT NULL,
			interval TEXT NOT NULL,
			source TEXT NOT NULL,
			record_count INT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(errors.ErrCodeSchemaSetup, "failed to create schema", err)
		}
	}

	return nil
}

// SaveBars implements BarStore. Rows already cached are skipped via
// ON CONFLICT DO NOTHING on the (symbol, ts, interval) uniqueness constraint.
func (s *PostgresStore) SaveBars(ctx context.Context, symbol string, interval types.Interval, bars []types.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	var inserted int64

	for offset := 0; offset < len(bars); offset += saveBatchSize {
		end := offset + saveBatchSize
		if end > len(bars) {
			end = len(bars)
		}

		builder := s.sq.
			Insert("intraday_bars").
			Columns("symbol", "ts", "open", "high", "low", "close", "volume", "interval")

		for _, bar := range bars[offset:end] {
			builder = builder.Values(symbol, bar.Time.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, string(interval))
		}

		query, args, err := builder.
			Suffix("ON CONFLICT (symbol, ts, interval) DO NOTHING").
			ToSql()
		if err != nil {
			return inserted, errors.Wrap(errors.ErrCodeInsertFailed, "failed to build insert", err)
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, errors.Wrapf(errors.ErrCodeInsertFailed, err, "failed to insert bars for %s", symbol)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return inserted, errors.Wrap(errors.ErrCodeInsertFailed, "failed to read affected rows", err)
		}

		inserted += rows
	}

	s.logger.Debug("Saved bars",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("requested", len(bars)),
		zap.Int64("inserted", inserted))

	return inserted, nil
}

// GetBars implements BarStore.
func (s *PostgresStore) GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	query, args, err := s.sq.
		Select("symbol", "ts", "open", "high", "low", "close", "volume").
		From("intraday_bars").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.Eq{"interval": string(interval)},
			squirrel.GtOrEq{"ts": start.UTC()},
			squirrel.LtOrEq{"ts": end.UTC()},
		}).
		OrderBy("ts ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query bars for %s", symbol)
	}
	defer rows.Close()

	result := make([]types.Bar, 0, 1000)

	for rows.Next() {
		var bar types.Bar

		err := rows.Scan(&bar.Symbol, &bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		bar.Time = bar.Time.UTC()
		result = append(result, bar)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
	}

	return result, nil
}

// CountBars implements BarStore.
func (s *PostgresStore) CountBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) (int64, error) {
	query, args, err := s.sq.
		Select("COUNT(*)").
		From("intraday_bars").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.Eq{"interval": string(interval)},
			squirrel.GtOrEq{"ts": start.UTC()},
			squirrel.LtOrEq{"ts": end.UTC()},
		}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count bars for %s", symbol)
	}

	return count, nil
}

// CachedRange implements BarStore.
func (s *PostgresStore) CachedRange(ctx context.Context, symbol string, interval types.Interval) (optional.Option[CachedRange], error) {
	query, args, err := s.sq.
		Select("MIN(ts)", "MAX(ts)").
		From("intraday_bars").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.Eq{"interval": string(interval)},
		}).
		ToSql()
	if err != nil {
		return optional.None[CachedRange](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var earliest, latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&earliest, &latest); err != nil {
		return optional.None[CachedRange](), errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query cached range for %s", symbol)
	}

	if !earliest.Valid || !latest.Valid {
		return optional.None[CachedRange](), nil
	}

	return optional.Some(CachedRange{
		Earliest: earliest.Time.UTC(),
		Latest:   latest.Time.UTC(),
	}), nil
}

// RecordFetch implements BarStore.
func (s *PostgresStore) RecordFetch(ctx context.Context, entry FetchLogEntry) error {
	query, args, err := s.sq.
		Insert("fetch_log").
		Columns("symbol", "start_ts", "end_ts", "interval", "source", "record_count").
		Values(entry.Symbol, entry.Start.UTC(), entry.End.UTC(), string(entry.Interval), string(entry.Source), entry.RecordCount).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInsertFailed, "failed to build audit insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeInsertFailed, err, "failed to record fetch for %s", entry.Symbol)
	}

	return nil
}

// FetchHistory implements BarStore.
func (s *PostgresStore) FetchHistory(ctx context.Context, symbol string, limit int) ([]FetchLogEntry, error) {
	builder := s.sq.
		Select("symbol", "start_ts", "end_ts", "interval", "source", "record_count", "fetched_at").
		From("fetch_log").
		OrderBy("fetched_at DESC").
		Limit(uint64(limit))

	if symbol != "" {
		builder = builder.Where(squirrel.Eq{"symbol": symbol})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query fetch log", err)
	}
	defer rows.Close()

	var entries []FetchLogEntry

	for rows.Next() {
		var (
			entry    FetchLogEntry
			interval string
			source   string
		)

		err := rows.Scan(&entry.Symbol, &entry.Start, &entry.End, &interval, &source, &entry.RecordCount, &entry.FetchedAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan audit row", err)
		}

		entry.Interval = types.Interval(interval)
		entry.Source = FetchSource(source)
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating audit rows", err)
	}

	return entries, nil
}

// Stats implements BarStore.
func (s *PostgresStore) Stats(ctx context.Context) ([]SymbolStats, error) {
	query, _, err := s.sq.
		Select("symbol", "interval", "COUNT(*)", "MIN(ts)", "MAX(ts)").
		From("intraday_bars").
		GroupBy("symbol", "interval").
		OrderBy("symbol", "interval").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query stats", err)
	}
	defer rows.Close()

	var stats []SymbolStats

	for rows.Next() {
		var (
			st       SymbolStats
			interval string
		)

		err := rows.Scan(&st.Symbol, &interval, &st.BarCount, &st.Earliest, &st.Latest)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan stats row", err)
		}

		st.Interval = types.Interval(interval)
		stats = append(stats, st)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating stats rows", err)
	}

	return stats, nil
}

// Close implements BarStore.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

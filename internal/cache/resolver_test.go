package cache

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// fakeStore is an in-memory BarStore for resolver tests.
type fakeStore struct {
	bars      []types.Bar
	audits    []store.FetchLogEntry
	saveCalls int
	getErr    error
	recordErr error
}

func (f *fakeStore) Setup(ctx context.Context) error { return nil }

func (f *fakeStore) SaveBars(ctx context.Context, symbol string, interval types.Interval, bars []types.Bar) (int64, error) {
	f.saveCalls++
	f.bars = append(f.bars, bars...)

	return int64(len(bars)), nil
}

func (f *fakeStore) GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	var result []types.Bar

	for _, bar := range f.bars {
		if bar.Symbol == symbol && !bar.Time.Before(start) && !bar.Time.After(end) {
			result = append(result, bar)
		}
	}

	return result, nil
}

func (f *fakeStore) CountBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) (int64, error) {
	bars, _ := f.GetBars(ctx, symbol, interval, start, end)

	return int64(len(bars)), nil
}

func (f *fakeStore) CachedRange(ctx context.Context, symbol string, interval types.Interval) (optional.Option[store.CachedRange], error) {
	return optional.None[store.CachedRange](), nil
}

func (f *fakeStore) RecordFetch(ctx context.Context, entry store.FetchLogEntry) error {
	if f.recordErr != nil {
		return f.recordErr
	}

	f.audits = append(f.audits, entry)

	return nil
}

func (f *fakeStore) FetchHistory(ctx context.Context, symbol string, limit int) ([]store.FetchLogEntry, error) {
	return f.audits, nil
}

func (f *fakeStore) Stats(ctx context.Context) ([]store.SymbolStats, error) { return nil, nil }

func (f *fakeStore) Close() error { return nil }

// fakeProvider returns a fixed bar slice and counts calls.
type fakeProvider struct {
	bars  []types.Bar
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IntradayBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return f.bars, nil
}

type ResolverTestSuite struct {
	suite.Suite
	ctx   context.Context
	start time.Time
	end   time.Time
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (suite *ResolverTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.start = time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2025, 10, 31, 6, 0, 0, 0, time.UTC)
}

func (suite *ResolverTestSuite) newLogger() *logger.Logger {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	return log
}

func (suite *ResolverTestSuite) providerBars() []types.Bar {
	bars := make([]types.Bar, 0, 3)
	for i := 0; i < 3; i++ {
		bars = append(bars, types.Bar{
			Symbol: "7203.T",
			Time:   suite.start.Add(time.Duration(i) * time.Minute),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100.5,
			Volume: 1000,
		})
	}

	return bars
}

func (suite *ResolverTestSuite) TestMissFetchesAndPersists() {
	st := &fakeStore{}
	prov := &fakeProvider{bars: suite.providerBars()}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	result, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(store.FetchSourceAPI, result.Source)
	suite.Len(result.Bars, 3)
	suite.Equal(1, prov.calls)
	suite.Equal(1, st.saveCalls)
	suite.Require().Len(st.audits, 1)
	suite.Equal(store.FetchSourceAPI, st.audits[0].Source)
	suite.Equal(3, st.audits[0].RecordCount)
}

func (suite *ResolverTestSuite) TestHitServedFromStore() {
	st := &fakeStore{bars: suite.providerBars()}
	prov := &fakeProvider{}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	result, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(store.FetchSourceCache, result.Source)
	suite.Len(result.Bars, 3)
	suite.Equal(0, prov.calls)
	suite.Require().Len(st.audits, 1)
	suite.Equal(store.FetchSourceCache, st.audits[0].Source)
}

func (suite *ResolverTestSuite) TestCacheDisabledBypassesStore() {
	st := &fakeStore{bars: suite.providerBars()}
	prov := &fakeProvider{bars: suite.providerBars()}
	resolver := NewResolver(st, prov, false, suite.newLogger())

	result, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(store.FetchSourceAPI, result.Source)
	suite.Equal(1, prov.calls)
	suite.Equal(0, st.saveCalls)
	suite.Empty(st.audits)
}

func (suite *ResolverTestSuite) TestEmptyProviderResultAudited() {
	st := &fakeStore{}
	prov := &fakeProvider{}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	result, err := resolver.GetBars(suite.ctx, "9984.T", types.Interval1Min, suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Empty(result.Bars)
	suite.Equal(0, st.saveCalls)
	suite.Require().Len(st.audits, 1)
	suite.Equal(0, st.audits[0].RecordCount)
}

func (suite *ResolverTestSuite) TestProviderErrorPropagates() {
	st := &fakeStore{}
	prov := &fakeProvider{err: errors.New(errors.ErrCodeProviderFetchFailed, "rate limited")}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	_, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeProviderFetchFailed))
	suite.Empty(st.audits)
}

func (suite *ResolverTestSuite) TestStoreLookupErrorWrapped() {
	st := &fakeStore{getErr: errors.New(errors.ErrCodeQueryFailed, "connection reset")}
	prov := &fakeProvider{}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	_, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCacheLookupFailed))
}

func (suite *ResolverTestSuite) TestAuditFailureDoesNotFailRequest() {
	st := &fakeStore{recordErr: errors.New(errors.ErrCodeInsertFailed, "disk full")}
	prov := &fakeProvider{bars: suite.providerBars()}
	resolver := NewResolver(st, prov, true, suite.newLogger())

	result, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Len(result.Bars, 3)
}

func (suite *ResolverTestSuite) TestInvalidRangeRejected() {
	resolver := NewResolver(&fakeStore{}, &fakeProvider{}, true, suite.newLogger())

	_, err := resolver.GetBars(suite.ctx, "7203.T", types.Interval1Min, suite.end, suite.start)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

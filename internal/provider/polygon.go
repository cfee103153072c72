package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// polygonPageLimit is the maximum results per aggregates page.
const polygonPageLimit = 50000

type PolygonProvider struct {
	client *polygon.Client
	logger *logger.Logger
}

// NewPolygonProvider creates a provider backed by the Polygon REST API.
func NewPolygonProvider(apiKey string, log *logger.Logger) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeProviderAuth, "polygon API key is required")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
		logger: log,
	}, nil
}

// Name implements Provider.
func (p *PolygonProvider) Name() string {
	return string(TypePolygon)
}

// IntradayBars implements Provider.
func (p *PolygonProvider) IntradayBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonPageLimit)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: int64(agg.Volume),
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, iter.Err(), "failed to fetch %s aggregates", symbol)
	}

	p.logger.Debug("Fetched bars from polygon",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("count", len(bars)))

	return bars, nil
}

// polygonTimespan maps a cache interval onto the multiplier and timespan the
// aggregates endpoint expects.
func polygonTimespan(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1Min:
		return 1, models.Minute, nil
	case types.Interval5Min:
		return 5, models.Minute, nil
	case types.Interval15Min:
		return 15, models.Minute, nil
	case types.Interval30Min:
		return 30, models.Minute, nil
	case types.Interval1Hour:
		return 1, models.Hour, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", interval)
	}
}

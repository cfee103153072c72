package provider

import (
	"context"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

type AlpacaProvider struct {
	client *marketdata.Client
	logger *logger.Logger
}

// NewAlpacaProvider creates a provider backed by the Alpaca market-data API.
func NewAlpacaProvider(apiKey, apiSecret string, log *logger.Logger) (Provider, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New(errors.ErrCodeProviderAuth, "alpaca API key and secret are required")
	}

	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaProvider{
		client: client,
		logger: log,
	}, nil
}

// Name implements Provider.
func (p *AlpacaProvider) Name() string {
	return string(TypeAlpaca)
}

// IntradayBars implements Provider.
func (p *AlpacaProvider) IntradayBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeframe, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: timeframe,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, err, "failed to fetch %s bars", symbol)
	}

	bars := make([]types.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   ab.Timestamp.UTC(),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
		})
	}

	p.logger.Debug("Fetched bars from alpaca",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("count", len(bars)))

	return bars, nil
}

// alpacaTimeFrame maps a cache interval onto the bars endpoint timeframe.
func alpacaTimeFrame(interval types.Interval) (marketdata.TimeFrame, error) {
	switch interval {
	case types.Interval1Min:
		return marketdata.NewTimeFrame(1, marketdata.Min), nil
	case types.Interval5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case types.Interval15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case types.Interval30Min:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case types.Interval1Hour:
		return marketdata.NewTimeFrame(1, marketdata.Hour), nil
	default:
		return marketdata.TimeFrame{}, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", interval)
	}
}

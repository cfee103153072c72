package provider

import (
	"context"
	"time"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// Type identifies a remote market-data API.
type Type string

const (
	TypePolygon Type = "polygon"
	TypeAlpaca  Type = "alpaca"
)

// Provider fetches intraday bars from a remote market-data API.
type Provider interface {
	// Name returns the provider identifier used in logs and audit rows.
	Name() string
	// IntradayBars fetches all bars for the symbol in [start, end] at the
	// given interval, ordered by timestamp ascending. An empty result is not
	// an error.
	IntradayBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
}

// New creates a provider from the configuration.
func New(cfg config.ProviderConfig, log *logger.Logger) (Provider, error) {
	switch Type(cfg.Type) {
	case TypePolygon:
		return NewPolygonProvider(cfg.PolygonAPIKey, log)
	case TypeAlpaca:
		return NewAlpacaProvider(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, log)
	default:
		return nil, errors.Newf(errors.ErrCodeProviderUnsupported, "unsupported provider %q", cfg.Type)
	}
}

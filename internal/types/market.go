package types

import (
	"time"
)

// Bar is a single OHLCV bar for a symbol at a given interval.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume int64     `yaml:"volume" json:"volume" csv:"volume"`
}

// Interval identifies the bar aggregation interval as stored in the cache.
type Interval string

const (
	Interval1Min  Interval = "1min"
	Interval5Min  Interval = "5min"
	Interval15Min Interval = "15min"
	Interval30Min Interval = "30min"
	Interval1Hour Interval = "1h"
)

// Minutes returns the number of minutes covered by one bar of this interval.
func (i Interval) Minutes() (int, bool) {
	switch i {
	case Interval1Min:
		return 1, true
	case Interval5Min:
		return 5, true
	case Interval15Min:
		return 15, true
	case Interval30Min:
		return 30, true
	case Interval1Hour:
		return 60, true
	default:
		return 0, false
	}
}

// Valid reports whether the interval is one of the supported values.
func (i Interval) Valid() bool {
	_, ok := i.Minutes()

	return ok
}

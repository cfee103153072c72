// Package orb implements the opening range breakout rule: compute the
// high/low of the opening range window, then enter on the first bar in the
// entry window that trades through either bound.
package orb

import (
	"math"
	"time"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// minRangeBars is the minimum number of bars needed to form a usable range.
const minRangeBars = 2

// OpeningRange is the high/low of the range window for one trading day.
type OpeningRange struct {
	High     float64
	Low      float64
	BarCount int
}

// Signal is a breakout entry decision for a single bar.
type Signal struct {
	Side       types.Side
	EntryPrice float64
	Time       time.Time
}

// ComputeOpeningRange computes the range high/low from bars whose timestamps
// fall in [rangeStart, rangeEnd], both ends inclusive. Bars outside the
// window are ignored. Fewer than two in-window bars is not enough to form a
// range.
func ComputeOpeningRange(bars []types.Bar, session config.Session) (OpeningRange, error) {
	rng := OpeningRange{
		High: math.Inf(-1),
		Low:  math.Inf(1),
	}

	for _, bar := range bars {
		minute := bar.Time.Hour()*60 + bar.Time.Minute()
		if minute < session.RangeStart.MinuteOfDay() || minute > session.RangeEnd.MinuteOfDay() {
			continue
		}

		if math.IsNaN(bar.High) || math.IsNaN(bar.Low) {
			continue
		}

		if bar.High > rng.High {
			rng.High = bar.High
		}

		if bar.Low < rng.Low {
			rng.Low = bar.Low
		}

		rng.BarCount++
	}

	if rng.BarCount < minRangeBars {
		return OpeningRange{}, errors.NewInsufficientDataErrorf(minRangeBars, rng.BarCount, "",
			"opening range needs at least %d bars, got %d", minRangeBars, rng.BarCount)
	}

	return rng, nil
}

// DetectBreakout checks a single bar against the opening range. An upside
// break takes precedence when a bar pierces both bounds. Entry is at the
// breakout bar's close. Returns nil when the bar stays inside the range.
func DetectBreakout(bar types.Bar, rng OpeningRange) *Signal {
	if math.IsNaN(bar.High) || math.IsNaN(bar.Low) || math.IsNaN(bar.Close) {
		return nil
	}

	if bar.High > rng.High {
		return &Signal{
			Side:       types.SideLong,
			EntryPrice: bar.Close,
			Time:       bar.Time,
		}
	}

	if bar.Low < rng.Low {
		return &Signal{
			Side:       types.SideShort,
			EntryPrice: bar.Close,
			Time:       bar.Time,
		}
	}

	return nil
}

// ExitCheck describes why and at what price an open position should close on
// this bar, or nil when it should stay open.
type ExitCheck struct {
	Reason types.ExitReason
	Price  float64
}

// CheckExit evaluates the exit rules for an open position against one bar,
// using the bar's close as the current price. Profit target and stop loss are
// fractions of the entry price; the target is checked before the stop. Force
// exit fires at or after the session force-exit time.
func CheckExit(bar types.Bar, side types.Side, entryPrice, profitTarget, stopLoss float64, forceExit config.TimeOfDay) *ExitCheck {
	price := bar.Close
	if math.IsNaN(price) {
		return nil
	}

	switch side {
	case types.SideLong:
		if price >= entryPrice*(1+profitTarget) {
			return &ExitCheck{Reason: types.ExitReasonProfitTarget, Price: price}
		}

		if price <= entryPrice*(1-stopLoss) {
			return &ExitCheck{Reason: types.ExitReasonStopLoss, Price: price}
		}
	case types.SideShort:
		if price <= entryPrice*(1-profitTarget) {
			return &ExitCheck{Reason: types.ExitReasonProfitTarget, Price: price}
		}

		if price >= entryPrice*(1+stopLoss) {
			return &ExitCheck{Reason: types.ExitReasonStopLoss, Price: price}
		}
	}

	minute := bar.Time.Hour()*60 + bar.Time.Minute()
	if minute >= forceExit.MinuteOfDay() {
		return &ExitCheck{Reason: types.ExitReasonForceExit, Price: price}
	}

	return nil
}

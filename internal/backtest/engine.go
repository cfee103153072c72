// Package backtest runs the day-by-day opening range breakout simulation
// over cached market data and produces trade and equity records.
package backtest

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/strategy/orb"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// BarSource supplies intraday bars for a symbol and time range. The cache
// resolver satisfies this.
type BarSource interface {
	Bars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
}

// Result is the raw output of one backtest run.
type Result struct {
	InitialCapital float64
	FinalEquity    float64
	TradingDays    int
	Trades         []types.TradeRecord
	EquityCurve    []types.EquityPoint
}

type Engine struct {
	source    BarSource
	strategy  config.StrategyConfig
	backtest  config.BacktestConfig
	session   config.Session
	portfolio *Portfolio
	logger    *logger.Logger

	trades     []types.TradeRecord
	equity     []types.EquityPoint
	lastPrices map[string]float64
}

// NewEngine creates a backtest engine from the validated configuration.
func NewEngine(cfg config.Config, source BarSource, log *logger.Logger) (*Engine, error) {
	session, err := cfg.Strategy.Session()
	if err != nil {
		return nil, err
	}

	if cfg.Backtest.InitialCapital <= 0 {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "initial capital must be positive")
	}

	return &Engine{
		source:    source,
		strategy:  cfg.Strategy,
		backtest:  cfg.Backtest,
		session:   session,
		portfolio: NewPortfolio(cfg.Backtest.InitialCapital, cfg.Backtest.CommissionRate),
		logger:    log,
	}, nil
}

// Run walks every weekday in [start, end], processes each configured symbol,
// and closes all remaining positions at the end of each day. Symbols whose
// data cannot be resolved are skipped with a warning so one bad symbol does
// not abort the run.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	if end.Before(start) {
		return nil, errors.New(errors.ErrCodeInvalidDateRange, "end must not be before start")
	}

	e.logger.Info("Starting backtest",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Strings("symbols", e.backtest.Symbols),
		zap.Float64("initial_capital", e.backtest.InitialCapital))

	tradingDays := 0

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}

		e.lastPrices = make(map[string]float64)

		for _, symbol := range e.backtest.Symbols {
			if err := e.processSymbolDay(ctx, symbol, date); err != nil {
				e.logger.Warn("Symbol processing failed",
					zap.String("symbol", symbol),
					zap.Time("date", date),
					zap.Error(err))
			}
		}

		e.closeAllPositions(date)

		e.equity = append(e.equity, types.EquityPoint{
			Date:      date,
			Equity:    e.portfolio.Cash(),
			Cash:      e.portfolio.Cash(),
			OpenCount: e.portfolio.OpenCount(),
		})

		tradingDays++
	}

	result := &Result{
		InitialCapital: e.backtest.InitialCapital,
		FinalEquity:    e.portfolio.Cash(),
		TradingDays:    tradingDays,
		Trades:         e.trades,
		EquityCurve:    e.equity,
	}

	e.logger.Info("Backtest complete",
		zap.Int("trading_days", tradingDays),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.FinalEquity))

	return result, nil
}

func (e *Engine) processSymbolDay(ctx context.Context, symbol string, date time.Time) error {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := e.session.ForceExit.On(date)

	bars, err := e.source.Bars(ctx, symbol, e.strategy.Interval, dayStart, dayEnd)
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		return nil
	}

	rng, err := orb.ComputeOpeningRange(bars, e.session)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			e.logger.Debug("Not enough bars to form an opening range",
				zap.String("symbol", symbol),
				zap.Time("date", date))

			return nil
		}

		return err
	}

	e.tryEnter(symbol, bars, rng)
	e.monitorPositions(symbol, bars)

	// Track the last traded price for the day-end close.
	for i := len(bars) - 1; i >= 0; i-- {
		if !math.IsNaN(bars[i].Close) {
			e.lastPrices[symbol] = bars[i].Close

			break
		}
	}

	return nil
}

// tryEnter scans the entry window for the first breakout bar and opens at
// most one position for the symbol.
func (e *Engine) tryEnter(symbol string, bars []types.Bar, rng orb.OpeningRange) {
	for _, bar := range bars {
		minute := bar.Time.Hour()*60 + bar.Time.Minute()
		if minute < e.session.EntryStart.MinuteOfDay() || minute >= e.session.EntryEnd.MinuteOfDay() {
			continue
		}

		if e.portfolio.HasOpen(symbol) {
			continue
		}

		signal := orb.DetectBreakout(bar, rng)
		if signal == nil {
			continue
		}

		quantity := e.portfolio.PositionSize(signal.EntryPrice, e.portfolio.OpenCount()+1)
		if quantity <= 0 {
			continue
		}

		position, err := NewPosition(symbol, signal.Side, signal.EntryPrice, quantity, signal.Time)
		if err != nil {
			e.logger.Warn("Invalid entry", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		if err := e.portfolio.AddPosition(position); err != nil {
			e.logger.Warn("Entry rejected", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		e.logger.Info("Entered position",
			zap.String("symbol", symbol),
			zap.String("side", string(signal.Side)),
			zap.Float64("price", signal.EntryPrice),
			zap.Int64("quantity", quantity),
			zap.Time("time", signal.Time))

		return
	}
}

// monitorPositions walks the bars after each position's entry time and closes
// on the first exit rule that fires.
func (e *Engine) monitorPositions(symbol string, bars []types.Bar) {
	open := make([]*Position, len(e.portfolio.OpenPositions()))
	copy(open, e.portfolio.OpenPositions())

	for _, position := range open {
		if position.Symbol != symbol {
			continue
		}

		for _, bar := range bars {
			if !bar.Time.After(position.EntryTime) {
				continue
			}

			check := orb.CheckExit(bar, position.Side, position.EntryPrice,
				e.strategy.ProfitTarget, e.strategy.StopLoss, e.session.ForceExit)
			if check == nil {
				continue
			}

			e.closePosition(position, check.Price, bar.Time, check.Reason)

			break
		}
	}
}

// closeAllPositions force-closes anything still open at the end of the day,
// using each symbol's last traded price and falling back to the entry price
// when no price was seen.
func (e *Engine) closeAllPositions(date time.Time) {
	if e.portfolio.OpenCount() == 0 {
		return
	}

	exitTime := e.session.ForceExit.On(date)

	open := make([]*Position, len(e.portfolio.OpenPositions()))
	copy(open, e.portfolio.OpenPositions())

	for _, position := range open {
		exitPrice, ok := e.lastPrices[position.Symbol]
		if !ok {
			exitPrice = position.EntryPrice
		}

		e.closePosition(position, exitPrice, exitTime, types.ExitReasonDayEnd)
	}
}

func (e *Engine) closePosition(position *Position, exitPrice float64, exitTime time.Time, reason types.ExitReason) {
	trade, err := e.portfolio.ClosePosition(position, exitPrice, exitTime, reason)
	if err != nil {
		e.logger.Warn("Failed to close position",
			zap.String("symbol", position.Symbol),
			zap.Error(err))

		return
	}

	e.trades = append(e.trades, trade)

	e.logger.Info("Closed position",
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("pnl", trade.PnL),
		zap.String("reason", string(trade.Reason)))
}

// Package optimizer runs brute-force single-parameter sweeps of the
// breakout strategy: one backtest per candidate value, ranked by a chosen
// metric.
package optimizer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openrange-trading/openrange/internal/analysis"
	"github.com/openrange-trading/openrange/internal/backtest"
	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// Sweepable parameter names.
const (
	ParamProfitTarget = "profit_target"
	ParamStopLoss     = "stop_loss"
	ParamRangeMinutes = "range_minutes"
	ParamEntryWindow  = "entry_window_minutes"
	ParamForceExit    = "force_exit"
)

// Metric names for ranking sweep outcomes.
const (
	MetricTotalReturn = "total_return"
	MetricTotalPnL    = "total_pnl"
	MetricWinRate     = "win_rate"
)

// Grid is the sweep definition loaded from an optimization YAML file. Each
// non-empty list is one independent single-parameter sweep.
type Grid struct {
	PrimaryMetric string `yaml:"primary_metric"`
	Parameters    struct {
		ProfitTarget       []float64 `yaml:"profit_target"`
		StopLoss           []float64 `yaml:"stop_loss"`
		RangeMinutes       []int     `yaml:"range_minutes"`
		EntryWindowMinutes []int     `yaml:"entry_window_minutes"`
		ForceExit          []string  `yaml:"force_exit"`
	} `yaml:"parameters"`
}

// LoadGrid reads a sweep definition from a YAML file.
func LoadGrid(path string) (Grid, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read sweep config %s", path)
	}

	var grid Grid
	if err := yaml.Unmarshal(content, &grid); err != nil {
		return Grid{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse sweep config", err)
	}

	if grid.PrimaryMetric == "" {
		grid.PrimaryMetric = MetricTotalReturn
	}

	switch grid.PrimaryMetric {
	case MetricTotalReturn, MetricTotalPnL, MetricWinRate:
	default:
		return Grid{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown primary metric %q", grid.PrimaryMetric)
	}

	return grid, nil
}

// SweepNames returns the parameters this grid actually defines values for.
func (g Grid) SweepNames() []string {
	var names []string

	if len(g.Parameters.ProfitTarget) > 0 {
		names = append(names, ParamProfitTarget)
	}

	if len(g.Parameters.StopLoss) > 0 {
		names = append(names, ParamStopLoss)
	}

	if len(g.Parameters.RangeMinutes) > 0 {
		names = append(names, ParamRangeMinutes)
	}

	if len(g.Parameters.EntryWindowMinutes) > 0 {
		names = append(names, ParamEntryWindow)
	}

	if len(g.Parameters.ForceExit) > 0 {
		names = append(names, ParamForceExit)
	}

	return names
}

// Outcome is the result of one backtest within a sweep.
type Outcome struct {
	Parameter   string
	Label       string
	TotalTrades int
	WinRate     float64
	TotalReturn float64
	FinalEquity float64
	PnL         float64
}

type Optimizer struct {
	base   config.Config
	grid   Grid
	source backtest.BarSource
	logger *logger.Logger
}

// NewOptimizer creates an optimizer over a validated base configuration. The
// base run dates must be set since every sweep iteration reuses them.
func NewOptimizer(base config.Config, grid Grid, source backtest.BarSource, log *logger.Logger) (*Optimizer, error) {
	if base.Backtest.StartDate.IsNone() || base.Backtest.EndDate.IsNone() {
		return nil, errors.New(errors.ErrCodeMissingParameter, "sweep requires start_date and end_date")
	}

	return &Optimizer{
		base:   base,
		grid:   grid,
		source: source,
		logger: log,
	}, nil
}

// Sweep runs one backtest per candidate value of the named parameter and
// returns the outcomes ranked best-first by the grid's primary metric.
func (o *Optimizer) Sweep(ctx context.Context, param string) ([]Outcome, error) {
	labels, configs, err := o.variants(param)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Starting parameter sweep",
		zap.String("parameter", param),
		zap.Int("values", len(configs)),
		zap.String("metric", o.grid.PrimaryMetric))

	outcomes := make([]Outcome, 0, len(configs))

	for i, cfg := range configs {
		engine, err := backtest.NewEngine(cfg, o.source, o.logger)
		if err != nil {
			return nil, err
		}

		result, err := engine.Run(ctx, cfg.Backtest.StartDate.Unwrap(), cfg.Backtest.EndDate.Unwrap())
		if err != nil {
			return nil, err
		}

		summary := analysis.Summarize(result.InitialCapital, result.Trades, result.EquityCurve)

		outcomes = append(outcomes, Outcome{
			Parameter:   param,
			Label:       labels[i],
			TotalTrades: summary.TotalTrades,
			WinRate:     summary.WinRate,
			TotalReturn: summary.TotalReturn,
			FinalEquity: summary.FinalEquity,
			PnL:         summary.FinalEquity - summary.InitialCapital,
		})

		o.logger.Info("Sweep iteration complete",
			zap.String("parameter", param),
			zap.String("value", labels[i]),
			zap.Int("trades", summary.TotalTrades),
			zap.Float64("total_return", summary.TotalReturn))
	}

	o.rank(outcomes)

	return outcomes, nil
}

// variants builds a strategy configuration per candidate value. Changing the
// range length shifts the entry window to keep it adjacent; changing the
// entry window length keeps its start fixed.
func (o *Optimizer) variants(param string) ([]string, []config.Config, error) {
	var (
		labels  []string
		configs []config.Config
	)

	session, err := o.base.Strategy.Session()
	if err != nil {
		return nil, nil, err
	}

	entryWindow := session.EntryEnd.MinuteOfDay() - session.EntryStart.MinuteOfDay()

	switch param {
	case ParamProfitTarget:
		for _, v := range o.grid.Parameters.ProfitTarget {
			cfg := o.base
			cfg.Strategy.ProfitTarget = v
			labels = append(labels, formatPercent(v))
			configs = append(configs, cfg)
		}
	case ParamStopLoss:
		for _, v := range o.grid.Parameters.StopLoss {
			cfg := o.base
			cfg.Strategy.StopLoss = v
			labels = append(labels, formatPercent(v))
			configs = append(configs, cfg)
		}
	case ParamRangeMinutes:
		for _, v := range o.grid.Parameters.RangeMinutes {
			cfg := o.base
			rangeEnd := session.RangeStart.Add(v)
			cfg.Strategy.RangeEnd = rangeEnd.String()
			cfg.Strategy.EntryStart = rangeEnd.String()
			cfg.Strategy.EntryEnd = rangeEnd.Add(entryWindow).String()
			labels = append(labels, fmt.Sprintf("%dmin", v))
			configs = append(configs, cfg)
		}
	case ParamEntryWindow:
		for _, v := range o.grid.Parameters.EntryWindowMinutes {
			cfg := o.base
			cfg.Strategy.EntryEnd = session.EntryStart.Add(v).String()
			labels = append(labels, fmt.Sprintf("%dmin", v))
			configs = append(configs, cfg)
		}
	case ParamForceExit:
		for _, v := range o.grid.Parameters.ForceExit {
			if _, err := config.ParseTimeOfDay(v); err != nil {
				return nil, nil, err
			}

			cfg := o.base
			cfg.Strategy.ForceExit = v
			labels = append(labels, v)
			configs = append(configs, cfg)
		}
	default:
		return nil, nil, errors.Newf(errors.ErrCodeUnknownSweepParameter, "unknown sweep parameter %q", param)
	}

	if len(configs) == 0 {
		return nil, nil, errors.Newf(errors.ErrCodeUnknownSweepParameter, "no values defined for parameter %q", param)
	}

	return labels, configs, nil
}

func (o *Optimizer) rank(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		switch o.grid.PrimaryMetric {
		case MetricTotalPnL:
			return outcomes[i].PnL > outcomes[j].PnL
		case MetricWinRate:
			return outcomes[i].WinRate > outcomes[j].WinRate
		default:
			return outcomes[i].TotalReturn > outcomes[j].TotalReturn
		}
	})
}

// WriteCSV writes ranked outcomes, best first.
func WriteCSV(path string, outcomes []Outcome) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"rank", "parameter", "value", "total_trades", "win_rate", "total_return", "final_equity", "pnl"}
	if err := writer.Write(header); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
	}

	for i, outcome := range outcomes {
		row := []string{
			strconv.Itoa(i + 1),
			outcome.Parameter,
			outcome.Label,
			strconv.Itoa(outcome.TotalTrades),
			strconv.FormatFloat(outcome.WinRate, 'f', 4, 64),
			strconv.FormatFloat(outcome.TotalReturn, 'f', 6, 64),
			strconv.FormatFloat(outcome.FinalEquity, 'f', 2, 64),
			strconv.FormatFloat(outcome.PnL, 'f', 2, 64),
		}

		if err := writer.Write(row); err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', -1, 64) + "%"
}

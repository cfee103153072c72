package optimizer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// scriptedSource replays one canned trading day for every requested day.
type scriptedSource struct {
	bars []types.Bar
}

func (s *scriptedSource) Bars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	var result []types.Bar

	for _, bar := range s.bars {
		t := time.Date(start.Year(), start.Month(), start.Day(),
			bar.Time.Hour(), bar.Time.Minute(), 0, 0, time.UTC)
		if t.Before(start) || t.After(end) {
			continue
		}

		shifted := bar
		shifted.Time = t
		result = append(result, shifted)
	}

	return result, nil
}

type OptimizerTestSuite struct {
	suite.Suite
	base   config.Config
	source *scriptedSource
	logger *logger.Logger
}

func TestOptimizerSuite(t *testing.T) {
	suite.Run(t, new(OptimizerTestSuite))
}

func (suite *OptimizerTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log

	suite.base = config.Config{
		Strategy: config.StrategyConfig{
			RangeStart:   "00:05",
			RangeEnd:     "00:15",
			EntryStart:   "00:15",
			EntryEnd:     "01:00",
			ForceExit:    "05:50",
			ProfitTarget: 0.02,
			StopLoss:     0.01,
			Interval:     types.Interval1Min,
		},
		Backtest: config.BacktestConfig{
			InitialCapital: 1000000,
			Symbols:        []string{"7203.T"},
			// A single Friday.
			StartDate:     optional.Some(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)),
			EndDate:       optional.Some(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)),
			ResultsFolder: "results",
		},
	}

	bar := func(hour, minute int, open, high, low, close float64) types.Bar {
		return types.Bar{
			Symbol: "7203.T",
			Time:   time.Date(2025, 10, 31, hour, minute, 0, 0, time.UTC),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: 1000,
		}
	}

	// Opening range 98-105, long breakout at 00:20, drifts up to +1.5% then
	// fades. A 1% profit target wins, a 2% target rides to a day-end exit.
	suite.source = &scriptedSource{bars: []types.Bar{
		bar(0, 5, 100, 102, 98, 101),
		bar(0, 10, 101, 105, 100, 104),
		bar(0, 20, 104, 106, 103, 106),
		bar(0, 30, 106, 107.7, 106, 107.6),
		bar(0, 40, 107.6, 107.6, 106.5, 106.8),
	}}
}

func (suite *OptimizerTestSuite) grid() Grid {
	var grid Grid
	grid.PrimaryMetric = MetricTotalReturn
	grid.Parameters.ProfitTarget = []float64{0.01, 0.02}
	grid.Parameters.RangeMinutes = []int{10, 25}
	grid.Parameters.ForceExit = []string{"05:50", "02:00"}

	return grid
}

func (suite *OptimizerTestSuite) TestSweepProfitTargetRanked() {
	opt, err := NewOptimizer(suite.base, suite.grid(), suite.source, suite.logger)
	suite.Require().NoError(err)

	outcomes, err := opt.Sweep(context.Background(), ParamProfitTarget)
	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 2)

	// The 1% target locks in the drift; the 2% target is never hit and the
	// trade fades into the day-end close.
	suite.Equal("1%", outcomes[0].Label)
	suite.Equal("2%", outcomes[1].Label)
	suite.Greater(outcomes[0].TotalReturn, outcomes[1].TotalReturn)
	suite.Equal(1, outcomes[0].TotalTrades)
}

func (suite *OptimizerTestSuite) TestSweepRangeMinutesDerivesWindows() {
	opt, err := NewOptimizer(suite.base, suite.grid(), suite.source, suite.logger)
	suite.Require().NoError(err)

	outcomes, err := opt.Sweep(context.Background(), ParamRangeMinutes)
	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 2)

	labels := []string{outcomes[0].Label, outcomes[1].Label}
	suite.ElementsMatch([]string{"10min", "25min"}, labels)
}

func (suite *OptimizerTestSuite) TestSweepForceExit() {
	opt, err := NewOptimizer(suite.base, suite.grid(), suite.source, suite.logger)
	suite.Require().NoError(err)

	outcomes, err := opt.Sweep(context.Background(), ParamForceExit)
	suite.Require().NoError(err)
	suite.Len(outcomes, 2)
}

func (suite *OptimizerTestSuite) TestSweepUnknownParameter() {
	opt, err := NewOptimizer(suite.base, suite.grid(), suite.source, suite.logger)
	suite.Require().NoError(err)

	_, err = opt.Sweep(context.Background(), "lot_size")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownSweepParameter))
}

func (suite *OptimizerTestSuite) TestSweepParameterWithoutValues() {
	opt, err := NewOptimizer(suite.base, suite.grid(), suite.source, suite.logger)
	suite.Require().NoError(err)

	_, err = opt.Sweep(context.Background(), ParamStopLoss)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownSweepParameter))
}

func (suite *OptimizerTestSuite) TestNewOptimizerRequiresDates() {
	base := suite.base
	base.Backtest.StartDate = optional.None[time.Time]()

	_, err := NewOptimizer(base, suite.grid(), suite.source, suite.logger)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *OptimizerTestSuite) TestGridSweepNames() {
	suite.ElementsMatch(
		[]string{ParamProfitTarget, ParamRangeMinutes, ParamForceExit},
		suite.grid().SweepNames(),
	)
}

func (suite *OptimizerTestSuite) TestLoadGrid() {
	path := filepath.Join(suite.T().TempDir(), "optimization.yaml")
	content := `
primary_metric: total_pnl
parameters:
  profit_target: [0.01, 0.02, 0.03]
  stop_loss: [0.005, 0.01]
`
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	grid, err := LoadGrid(path)
	suite.Require().NoError(err)
	suite.Equal(MetricTotalPnL, grid.PrimaryMetric)
	suite.Len(grid.Parameters.ProfitTarget, 3)
	suite.ElementsMatch([]string{ParamProfitTarget, ParamStopLoss}, grid.SweepNames())
}

func (suite *OptimizerTestSuite) TestLoadGridUnknownMetric() {
	path := filepath.Join(suite.T().TempDir(), "optimization.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("primary_metric: sortino\n"), 0o644))

	_, err := LoadGrid(path)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *OptimizerTestSuite) TestWriteCSV() {
	outcomes := []Outcome{
		{Parameter: ParamProfitTarget, Label: "1%", TotalTrades: 3, WinRate: 0.66, TotalReturn: 0.012, FinalEquity: 1012000, PnL: 12000},
		{Parameter: ParamProfitTarget, Label: "2%", TotalTrades: 2, WinRate: 0.5, TotalReturn: 0.004, FinalEquity: 1004000, PnL: 4000},
	}

	path := filepath.Join(suite.T().TempDir(), "sweep.csv")
	suite.Require().NoError(WriteCSV(path, outcomes))

	file, err := os.Open(path)
	suite.Require().NoError(err)

	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(rows, 3)
	suite.Equal("rank", rows[0][0])
	suite.Equal("1", rows[1][0])
	suite.Equal("1%", rows[1][2])
}

package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openrange-trading/openrange/internal/types"
)

type PerformanceTestSuite struct {
	suite.Suite
}

func TestPerformanceSuite(t *testing.T) {
	suite.Run(t, new(PerformanceTestSuite))
}

func (suite *PerformanceTestSuite) trade(pnl float64) types.TradeRecord {
	return types.TradeRecord{
		Symbol:     "7203.T",
		Side:       types.SideLong,
		EntryTime:  time.Date(2025, 10, 31, 0, 20, 0, 0, time.UTC),
		ExitTime:   time.Date(2025, 10, 31, 1, 0, 0, 0, time.UTC),
		EntryPrice: 100,
		ExitPrice:  100 + pnl/100,
		Quantity:   100,
		PnL:        pnl,
		Reason:     types.ExitReasonProfitTarget,
	}
}

func (suite *PerformanceTestSuite) equityCurve(values ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, 0, len(values))
	base := time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)

	for i, v := range values {
		points = append(points, types.EquityPoint{
			Date:   base.AddDate(0, 0, i),
			Equity: v,
			Cash:   v,
		})
	}

	return points
}

func (suite *PerformanceTestSuite) TestEmptyTrades() {
	summary := Summarize(1000000, nil, nil)

	suite.Equal(1000000.0, summary.InitialCapital)
	suite.Equal(1000000.0, summary.FinalEquity)
	suite.Zero(summary.TotalTrades)
	suite.Zero(summary.TotalReturn)
	suite.Zero(summary.WinRate)
	suite.Zero(summary.ProfitFactor)
	suite.Zero(summary.SharpeRatio)
}

func (suite *PerformanceTestSuite) TestBasicMetrics() {
	trades := []types.TradeRecord{
		suite.trade(2000),
		suite.trade(-1000),
		suite.trade(3000),
		suite.trade(-500),
	}
	equity := suite.equityCurve(1000000, 1002000, 1001000, 1004000, 1003500)

	summary := Summarize(1000000, trades, equity)

	suite.Equal(4, summary.TotalTrades)
	suite.Equal(2, summary.WinCount)
	suite.Equal(2, summary.LossCount)
	suite.Equal(0.5, summary.WinRate)
	suite.InDelta(0.0035, summary.TotalReturn, 1e-9)
	suite.InDelta(875.0, summary.AvgPnL, 1e-9)
	suite.InDelta(2500.0, summary.AvgWin, 1e-9)
	suite.InDelta(-750.0, summary.AvgLoss, 1e-9)
	suite.InDelta(5000.0/1500.0, summary.ProfitFactor, 1e-9)
	suite.InDelta(2500.0/750.0, summary.RiskReward, 1e-9)
	suite.Equal(1003500.0, summary.FinalEquity)
	suite.Equal(5, summary.TradingDays)
}

func (suite *PerformanceTestSuite) TestProfitFactorAllWins() {
	trades := []types.TradeRecord{suite.trade(1000), suite.trade(2000)}

	summary := Summarize(1000000, trades, nil)
	suite.True(math.IsInf(summary.ProfitFactor, 1))
	suite.Zero(summary.RiskReward)
}

func (suite *PerformanceTestSuite) TestProfitFactorAllLosses() {
	trades := []types.TradeRecord{suite.trade(-1000), suite.trade(-2000)}

	summary := Summarize(1000000, trades, nil)
	suite.Zero(summary.ProfitFactor)
	suite.Equal(0.0, summary.WinRate)
}

func (suite *PerformanceTestSuite) TestMaxDrawdown() {
	// Peak 1050000, trough 945000: drawdown 105000 = 10%.
	equity := suite.equityCurve(1000000, 1050000, 1020000, 945000, 990000)

	summary := Summarize(1000000, nil, equity)
	suite.InDelta(105000.0, summary.MaxDrawdown, 1e-9)
	suite.InDelta(0.1, summary.MaxDrawdownPct, 1e-9)
}

func (suite *PerformanceTestSuite) TestMaxDrawdownMonotonicEquity() {
	equity := suite.equityCurve(1000000, 1010000, 1020000)

	summary := Summarize(1000000, nil, equity)
	suite.Zero(summary.MaxDrawdown)
	suite.Zero(summary.MaxDrawdownPct)
}

func (suite *PerformanceTestSuite) TestSharpeRatioPositiveDrift() {
	equity := suite.equityCurve(1000000, 1010000, 1018000, 1030000, 1039000)

	summary := Summarize(1000000, nil, equity)
	suite.Greater(summary.SharpeRatio, 0.0)
}

func (suite *PerformanceTestSuite) TestSharpeRatioConstantEquity() {
	equity := suite.equityCurve(1000000, 1000000, 1000000)

	summary := Summarize(1000000, nil, equity)
	suite.Zero(summary.SharpeRatio)
}

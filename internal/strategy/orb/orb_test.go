package orb

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

type OrbTestSuite struct {
	suite.Suite
	session config.Session
	day     time.Time
}

func TestOrbSuite(t *testing.T) {
	suite.Run(t, new(OrbTestSuite))
}

func (suite *OrbTestSuite) SetupTest() {
	suite.session = config.Session{
		RangeStart: config.TimeOfDay{Hour: 0, Minute: 5},
		RangeEnd:   config.TimeOfDay{Hour: 0, Minute: 15},
		EntryStart: config.TimeOfDay{Hour: 0, Minute: 15},
		EntryEnd:   config.TimeOfDay{Hour: 1, Minute: 0},
		ForceExit:  config.TimeOfDay{Hour: 5, Minute: 50},
	}
	suite.day = time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
}

func (suite *OrbTestSuite) bar(hour, minute int, open, high, low, close float64) types.Bar {
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

func (suite *OrbTestSuite) TestComputeOpeningRange() {
	bars := []types.Bar{
		suite.bar(0, 0, 100, 101, 99, 100),  // before window
		suite.bar(0, 5, 100, 102, 98, 101),  // in window
		suite.bar(0, 10, 101, 105, 100, 104), // in window
		suite.bar(0, 15, 104, 104.5, 103, 104), // range end is inclusive
		suite.bar(0, 16, 104, 110, 90, 105), // after window
	}

	rng, err := ComputeOpeningRange(bars, suite.session)
	suite.Require().NoError(err)

	suite.Equal(105.0, rng.High)
	suite.Equal(98.0, rng.Low)
	suite.Equal(3, rng.BarCount)
}

func (suite *OrbTestSuite) TestComputeOpeningRangeTooFewBars() {
	bars := []types.Bar{
		suite.bar(0, 5, 100, 102, 98, 101),
	}

	_, err := ComputeOpeningRange(bars, suite.session)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *OrbTestSuite) TestComputeOpeningRangeSkipsNaN() {
	bars := []types.Bar{
		suite.bar(0, 5, 100, 102, 98, 101),
		suite.bar(0, 6, 100, math.NaN(), 97, 101),
		suite.bar(0, 10, 101, 103, 99, 102),
	}

	rng, err := ComputeOpeningRange(bars, suite.session)
	suite.Require().NoError(err)

	suite.Equal(103.0, rng.High)
	suite.Equal(98.0, rng.Low)
	suite.Equal(2, rng.BarCount)
}

func (suite *OrbTestSuite) TestDetectBreakoutLong() {
	rng := OpeningRange{High: 105, Low: 98}
	bar := suite.bar(0, 20, 104, 106, 103, 105.5)

	signal := DetectBreakout(bar, rng)
	suite.Require().NotNil(signal)
	suite.Equal(types.SideLong, signal.Side)
	suite.Equal(105.5, signal.EntryPrice)
	suite.Equal(bar.Time, signal.Time)
}

func (suite *OrbTestSuite) TestDetectBreakoutShort() {
	rng := OpeningRange{High: 105, Low: 98}
	bar := suite.bar(0, 20, 99, 100, 97, 97.5)

	signal := DetectBreakout(bar, rng)
	suite.Require().NotNil(signal)
	suite.Equal(types.SideShort, signal.Side)
	suite.Equal(97.5, signal.EntryPrice)
}

func (suite *OrbTestSuite) TestDetectBreakoutLongTakesPrecedence() {
	rng := OpeningRange{High: 105, Low: 98}
	bar := suite.bar(0, 20, 100, 106, 97, 101)

	signal := DetectBreakout(bar, rng)
	suite.Require().NotNil(signal)
	suite.Equal(types.SideLong, signal.Side)
}

func (suite *OrbTestSuite) TestDetectBreakoutInsideRange() {
	rng := OpeningRange{High: 105, Low: 98}
	bar := suite.bar(0, 20, 100, 104, 99, 102)

	suite.Nil(DetectBreakout(bar, rng))
}

func (suite *OrbTestSuite) TestDetectBreakoutNaNBar() {
	rng := OpeningRange{High: 105, Low: 98}
	bar := suite.bar(0, 20, 100, math.NaN(), 99, 102)

	suite.Nil(DetectBreakout(bar, rng))
}

func (suite *OrbTestSuite) TestCheckExitProfitTargetLong() {
	// Entry 100, target 2%, stop 1%.
	bar := suite.bar(0, 30, 101, 103, 101, 102.5)

	check := CheckExit(bar, types.SideLong, 100, 0.02, 0.01, suite.session.ForceExit)
	suite.Require().NotNil(check)
	suite.Equal(types.ExitReasonProfitTarget, check.Reason)
	suite.Equal(102.5, check.Price)
}

func (suite *OrbTestSuite) TestCheckExitStopLossLong() {
	bar := suite.bar(0, 30, 100, 100, 98.5, 98.9)

	check := CheckExit(bar, types.SideLong, 100, 0.02, 0.01, suite.session.ForceExit)
	suite.Require().NotNil(check)
	suite.Equal(types.ExitReasonStopLoss, check.Reason)
	suite.Equal(98.9, check.Price)
}

func (suite *OrbTestSuite) TestCheckExitProfitTargetShort() {
	bar := suite.bar(0, 30, 99, 99, 97, 97.9)

	check := CheckExit(bar, types.SideShort, 100, 0.02, 0.01, suite.session.ForceExit)
	suite.Require().NotNil(check)
	suite.Equal(types.ExitReasonProfitTarget, check.Reason)
}

func (suite *OrbTestSuite) TestCheckExitStopLossShort() {
	bar := suite.bar(0, 30, 101, 101.5, 100.5, 101.2)

	check := CheckExit(bar, types.SideShort, 100, 0.02, 0.01, suite.session.ForceExit)
	suite.Require().NotNil(check)
	suite.Equal(types.ExitReasonStopLoss, check.Reason)
}

func (suite *OrbTestSuite) TestCheckExitForceExit() {
	bar := suite.bar(5, 50, 100.5, 100.6, 100.4, 100.5)

	check := CheckExit(bar, types.SideLong, 100, 0.02, 0.01, suite.session.ForceExit)
	suite.Require().NotNil(check)
	suite.Equal(types.ExitReasonForceExit, check.Reason)
	suite.Equal(100.5, check.Price)
}

func (suite *OrbTestSuite) TestCheckExitHold() {
	bar := suite.bar(0, 30, 100.5, 100.6, 100.4, 100.5)

	suite.Nil(CheckExit(bar, types.SideLong, 100, 0.02, 0.01, suite.session.ForceExit))
}

func (suite *OrbTestSuite) TestCheckExitNaNClose() {
	bar := suite.bar(5, 55, 100, 100, 100, math.NaN())

	suite.Nil(CheckExit(bar, types.SideLong, 100, 0.02, 0.01, suite.session.ForceExit))
}

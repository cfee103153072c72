// Package analysis computes performance metrics from backtest output.
package analysis

import (
	"math"

	"github.com/openrange-trading/openrange/internal/types"
)

// annualizationFactor converts a daily Sharpe ratio to annual terms.
const annualizationFactor = 252

// Summarize computes the full metric set from a run's trades and daily
// equity curve. An empty trade list yields a zeroed summary with only the
// capital fields populated.
func Summarize(initialCapital float64, trades []types.TradeRecord, equity []types.EquityPoint) types.Summary {
	summary := types.Summary{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		TradingDays:    len(equity),
		TotalTrades:    len(trades),
	}

	if len(equity) > 0 {
		summary.FinalEquity = equity[len(equity)-1].Equity
	}

	summary.MaxDrawdown, summary.MaxDrawdownPct = maxDrawdown(equity)
	summary.SharpeRatio = sharpeRatio(equity)

	if len(trades) == 0 {
		return summary
	}

	var totalPnL, totalWin, totalLoss float64

	for _, trade := range trades {
		totalPnL += trade.PnL

		switch {
		case trade.PnL > 0:
			summary.WinCount++
			totalWin += trade.PnL
		case trade.PnL < 0:
			summary.LossCount++
			totalLoss += trade.PnL
		}
	}

	summary.TotalReturn = totalPnL / initialCapital
	summary.WinRate = float64(summary.WinCount) / float64(len(trades))
	summary.AvgPnL = totalPnL / float64(len(trades))

	if summary.WinCount > 0 {
		summary.AvgWin = totalWin / float64(summary.WinCount)
	}

	if summary.LossCount > 0 {
		summary.AvgLoss = totalLoss / float64(summary.LossCount)
	}

	summary.ProfitFactor = profitFactor(totalWin, totalLoss)

	if summary.AvgLoss != 0 {
		summary.RiskReward = summary.AvgWin / math.Abs(summary.AvgLoss)
	}

	return summary
}

// profitFactor is gross profit over gross loss. All-winning histories have
// no defined loss denominator and report +Inf.
func profitFactor(totalWin, totalLoss float64) float64 {
	loss := math.Abs(totalLoss)
	if loss == 0 {
		if totalWin > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return totalWin / loss
}

// maxDrawdown returns the largest absolute and relative decline from a
// running equity peak.
func maxDrawdown(equity []types.EquityPoint) (float64, float64) {
	if len(equity) == 0 {
		return 0, 0
	}

	var (
		peak     = equity[0].Equity
		maxDD    float64
		maxDDPct float64
	)

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}

		dd := peak - point.Equity
		if dd > maxDD {
			maxDD = dd
		}

		if peak > 0 {
			if ddPct := dd / peak; ddPct > maxDDPct {
				maxDDPct = ddPct
			}
		}
	}

	return maxDD, maxDDPct
}

// sharpeRatio computes the annualized Sharpe ratio from day-over-day equity
// returns, assuming a zero risk-free rate.
func sharpeRatio(equity []types.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}

		returns = append(returns, (equity[i].Equity-prev)/prev)
	}

	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	// Sample standard deviation.
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(annualizationFactor)
}

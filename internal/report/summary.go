package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// WriteSummary renders the run configuration and performance metrics as
// summary.txt.
func (r *Reporter) WriteSummary(summary types.Summary, cfg config.Config) error {
	var b strings.Builder

	rule := strings.Repeat("=", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "BACKTEST SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[Configuration]")
	fmt.Fprintf(&b, "Symbols:         %s\n", strings.Join(cfg.Backtest.Symbols, ", "))
	fmt.Fprintf(&b, "Opening range:   %s - %s\n", cfg.Strategy.RangeStart, cfg.Strategy.RangeEnd)
	fmt.Fprintf(&b, "Entry window:    %s - %s\n", cfg.Strategy.EntryStart, cfg.Strategy.EntryEnd)
	fmt.Fprintf(&b, "Force exit:      %s\n", cfg.Strategy.ForceExit)
	fmt.Fprintf(&b, "Profit target:   %.2f%%\n", cfg.Strategy.ProfitTarget*100)
	fmt.Fprintf(&b, "Stop loss:       %.2f%%\n", cfg.Strategy.StopLoss*100)
	fmt.Fprintf(&b, "Interval:        %s\n", cfg.Strategy.Interval)
	fmt.Fprintf(&b, "Commission rate: %.4f%%\n", cfg.Backtest.CommissionRate*100)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[Performance]")
	fmt.Fprintf(&b, "Initial capital: %s\n", formatMoney(summary.InitialCapital))
	fmt.Fprintf(&b, "Final equity:    %s\n", formatMoney(summary.FinalEquity))
	fmt.Fprintf(&b, "Total return:    %+.2f%%\n", summary.TotalReturn*100)
	fmt.Fprintf(&b, "Trading days:    %d\n", summary.TradingDays)
	fmt.Fprintf(&b, "Total trades:    %d\n", summary.TotalTrades)
	fmt.Fprintf(&b, "Wins / losses:   %d / %d\n", summary.WinCount, summary.LossCount)
	fmt.Fprintf(&b, "Win rate:        %.1f%%\n", summary.WinRate*100)
	fmt.Fprintf(&b, "Profit factor:   %s\n", formatRatio(summary.ProfitFactor))
	fmt.Fprintf(&b, "Avg pnl:         %s\n", formatMoney(summary.AvgPnL))
	fmt.Fprintf(&b, "Avg win:         %s\n", formatMoney(summary.AvgWin))
	fmt.Fprintf(&b, "Avg loss:        %s\n", formatMoney(summary.AvgLoss))
	fmt.Fprintf(&b, "Risk / reward:   %s\n", formatRatio(summary.RiskReward))
	fmt.Fprintf(&b, "Max drawdown:    %s (%.2f%%)\n", formatMoney(summary.MaxDrawdown), summary.MaxDrawdownPct*100)
	fmt.Fprintf(&b, "Sharpe ratio:    %.2f\n", summary.SharpeRatio)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated at %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintln(&b, rule)

	path := filepath.Join(r.dir, summaryFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// formatMoney renders a signed amount with thousands separators.
func formatMoney(v float64) string {
	digits := strconv.FormatFloat(math.Abs(v), 'f', 0, 64)

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}

	parts = append([]string{digits}, parts...)

	sign := "+"
	if v < 0 {
		sign = "-"
	}

	return sign + strings.Join(parts, ",")
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}

	return fmt.Sprintf("%.2f", v)
}

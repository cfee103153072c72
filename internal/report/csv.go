package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// WriteTrades writes the trade log as trades.csv, one row per round trip.
func (r *Reporter) WriteTrades(trades []types.TradeRecord) error {
	header := []string{
		"symbol", "side", "entry_time", "exit_time", "entry_price", "exit_price",
		"quantity", "commission", "pnl", "return", "reason",
	}

	rows := make([][]string, 0, len(trades))

	for _, trade := range trades {
		rows = append(rows, []string{
			trade.Symbol,
			string(trade.Side),
			trade.EntryTime.UTC().Format(time.RFC3339),
			trade.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(trade.EntryPrice),
			formatFloat(trade.ExitPrice),
			strconv.FormatInt(trade.Quantity, 10),
			formatFloat(trade.Commission),
			formatFloat(trade.PnL),
			formatFloat(trade.Return),
			string(trade.Reason),
		})
	}

	return r.writeCSV(tradesFileName, header, rows)
}

// WriteEquity writes the daily equity curve as equity.csv.
func (r *Reporter) WriteEquity(equity []types.EquityPoint) error {
	header := []string{"date", "equity", "cash", "open_positions"}

	rows := make([][]string, 0, len(equity))

	for _, point := range equity {
		rows = append(rows, []string{
			point.Date.UTC().Format("2006-01-02"),
			formatFloat(point.Equity),
			formatFloat(point.Cash),
			strconv.Itoa(point.OpenCount),
		})
	}

	return r.writeCSV(equityFileName, header, rows)
}

func (r *Reporter) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(r.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(header); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
	}

	if err := writer.WriteAll(rows); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
	}

	writer.Flush()

	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

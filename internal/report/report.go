// Package report renders backtest output into CSV, TXT and PNG artifacts
// under a per-run results directory.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openrange-trading/openrange/internal/backtest"
	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

const (
	tradesFileName  = "trades.csv"
	equityFileName  = "equity.csv"
	summaryFileName = "summary.txt"
	chartFileName   = "equity.png"
)

// Reporter writes all artifacts of one run into a dedicated directory.
type Reporter struct {
	dir    string
	logger *logger.Logger
}

// NewReporter creates the run directory under resultsFolder, named by
// timestamp plus a short unique suffix so concurrent runs never collide.
func NewReporter(resultsFolder string, log *logger.Logger) (*Reporter, error) {
	runID := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.New().String()[:8])

	dir := filepath.Join(resultsFolder, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create results directory %s", dir)
	}

	log.Info("Writing results", zap.String("dir", dir))

	return &Reporter{
		dir:    dir,
		logger: log,
	}, nil
}

// Dir returns the run directory path.
func (r *Reporter) Dir() string {
	return r.dir
}

// Generate writes the complete artifact set for a run: the trade log, the
// daily equity curve, the text summary and the equity chart.
func (r *Reporter) Generate(result *backtest.Result, summary types.Summary, cfg config.Config) error {
	if err := r.WriteTrades(result.Trades); err != nil {
		return err
	}

	if err := r.WriteEquity(result.EquityCurve); err != nil {
		return err
	}

	if err := r.WriteSummary(summary, cfg); err != nil {
		return err
	}

	if len(result.EquityCurve) > 0 {
		if err := r.WriteEquityChart(result.EquityCurve, result.InitialCapital); err != nil {
			return err
		}
	}

	r.logger.Info("Report generated",
		zap.String("dir", r.dir),
		zap.Int("trades", len(result.Trades)),
		zap.Int("equity_points", len(result.EquityCurve)))

	return nil
}

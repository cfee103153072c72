package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/analysis"
	"github.com/openrange-trading/openrange/internal/backtest"
	"github.com/openrange-trading/openrange/internal/cache"
	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/provider"
	"github.com/openrange-trading/openrange/internal/report"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/version"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// defaultLookbackDays is the run window when the config carries no dates.
const defaultLookbackDays = 30

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	start, end, err := runDates(cfg)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	barStore, err := store.NewPostgresStore(cfg.Database.DSN(), log)
	if err != nil {
		return err
	}
	defer barStore.Close()

	prov, err := provider.New(cfg.Provider, log)
	if err != nil {
		return err
	}

	resolver := cache.NewResolver(barStore, prov, cfg.Provider.UseCache, log)

	engine, err := backtest.NewEngine(cfg, resolver, log)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, start, end)
	if err != nil {
		return err
	}

	summary := analysis.Summarize(result.InitialCapital, result.Trades, result.EquityCurve)

	reporter, err := report.NewReporter(cfg.Backtest.ResultsFolder, log)
	if err != nil {
		return err
	}

	if err := reporter.Generate(result, summary, cfg); err != nil {
		return err
	}

	fmt.Printf("Trades: %d  Final equity: %.0f  Total return: %+.2f%%\n",
		summary.TotalTrades, summary.FinalEquity, summary.TotalReturn*100)
	fmt.Printf("Report written to %s\n", reporter.Dir())

	return nil
}

// runDates resolves the run window from the config, defaulting to the
// trailing month when dates are absent.
func runDates(cfg config.Config) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -defaultLookbackDays)

	if cfg.Backtest.EndDate.IsSome() {
		end = cfg.Backtest.EndDate.Unwrap().UTC()
	}

	if cfg.Backtest.StartDate.IsSome() {
		start = cfg.Backtest.StartDate.Unwrap().UTC()
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New(errors.ErrCodeInvalidDateRange, "end_date must not be before start_date")
	}

	return start, end, nil
}

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run the opening range breakout backtest and write a report",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

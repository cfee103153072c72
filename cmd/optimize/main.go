package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/cache"
	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/optimizer"
	"github.com/openrange-trading/openrange/internal/provider"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/version"
	"github.com/openrange-trading/openrange/pkg/errors"
)

func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	grid, err := optimizer.LoadGrid(cmd.String("opt-config"))
	if err != nil {
		return err
	}

	params := grid.SweepNames()
	if !cmd.Bool("all") {
		param := cmd.String("param")
		if param == "" {
			return errors.New(errors.ErrCodeMissingParameter, "pass --param <name> or --all")
		}

		params = []string{param}
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

	opt, err := optimizer.NewOptimizer(cfg, grid, resolver, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Backtest.ResultsFolder, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", cfg.Backtest.ResultsFolder)
	}

	for _, param := range params {
		outcomes, err := opt.Sweep(ctx, param)
		if err != nil {
			return err
		}

		printOutcomes(param, outcomes)

		path := filepath.Join(cfg.Backtest.ResultsFolder, fmt.Sprintf("optimize_%s.csv", param))
		if err := optimizer.WriteCSV(path, outcomes); err != nil {
			return err
		}

		fmt.Printf("Ranked results written to %s\n\n", path)
	}

	return nil
}

func printOutcomes(param string, outcomes []optimizer.Outcome) {
	fmt.Printf("Sweep: %s\n", param)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tvalue\ttrades\twin rate\ttotal return\tfinal equity")

	for i, outcome := range outcomes {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.1f%%\t%+.2f%%\t%.0f\n",
			i+1, outcome.Label, outcome.TotalTrades,
			outcome.WinRate*100, outcome.TotalReturn*100, outcome.FinalEquity)
	}

	w.Flush()
}

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "optimize",
		Usage:   "Sweep strategy parameters one at a time and rank the results",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:    "opt-config",
				Aliases: []string{"o"},
				Usage:   "Path to the sweep definition file",
				Value:   "optimization.yaml",
			},
			&cli.StringFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "Single parameter to sweep (e.g. profit_target)",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Sweep every parameter defined in the sweep config",
			},
		},
		Action: optimizeAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

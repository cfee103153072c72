package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/cache"
	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/provider"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/version"
)

// fetchAction warms the cache: it resolves bars for every requested symbol
// and date range, pulling from the remote API where the cache has gaps.
func fetchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	symbols := cfg.Backtest.Symbols
	if symbol := cmd.String("symbol"); symbol != "" {
		symbols = []string{symbol}
	}

	start := cmd.Timestamp("start").UTC()
	end := cmd.Timestamp("end").UTC()

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

	bar := progressbar.NewOptions(len(symbols),
		progressbar.OptionSetDescription("Fetching"),
		progressbar.OptionShowCount())

	for _, symbol := range symbols {
		result, err := resolver.GetBars(ctx, symbol, cfg.Strategy.Interval, start, end)
		if err != nil {
			return err
		}

		bar.Add(1)
		fmt.Printf("\n%s: %d bars (%s)\n", symbol, len(result.Bars), result.Source)
	}

	bar.Finish()

	return nil
}

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "fetch",
		Usage:   "Fetch intraday bars into the PostgreSQL cache",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Fetch a single symbol instead of the configured list",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
		},
		Action: fetchAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

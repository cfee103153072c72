package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/version"
)

func statusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
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

	stats, err := barStore.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Cache coverage (%s:%d/%s)\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	if len(stats) == 0 {
		fmt.Println("  no bars cached")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "symbol\tinterval\tbars\tearliest\tlatest")

		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				s.Symbol, s.Interval, s.BarCount,
				s.Earliest.Format("2006-01-02 15:04"),
				s.Latest.Format("2006-01-02 15:04"))
		}

		w.Flush()
	}

	history, err := barStore.FetchHistory(ctx, cmd.String("symbol"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	fmt.Printf("\nRecent fetches (%d)\n", len(history))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "fetched at\tsymbol\tinterval\tsource\trecords\trange")

	for _, entry := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s to %s\n",
			entry.FetchedAt.Format("2006-01-02 15:04:05"),
			entry.Symbol, entry.Interval, entry.Source, entry.RecordCount,
			entry.Start.Format("2006-01-02"), entry.End.Format("2006-01-02"))
	}

	w.Flush()

	return nil
}

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "dbstatus",
		Usage:   "Show bar cache coverage and the recent fetch audit log",
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
				Usage: "Limit the fetch history to one symbol",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of fetch history rows to show",
				Value:   20,
			},
		},
		Action: statusAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

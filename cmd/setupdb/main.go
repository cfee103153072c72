package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/logger"
	"github.com/openrange-trading/openrange/internal/store"
	"github.com/openrange-trading/openrange/internal/version"
)

// setupAction creates the bar cache tables and indexes. It is safe to run
// repeatedly.
func setupAction(ctx context.Context, cmd *cli.Command) error {
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

	if err := barStore.Setup(ctx); err != nil {
		return err
	}

	fmt.Printf("Schema ready on %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	fmt.Println("  intraday_bars")
	fmt.Println("  fetch_log")

	return nil
}

func main() {
	// Credentials may come from a local .env instead of the config file.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "setupdb",
		Usage:   "Create the market-data cache schema in PostgreSQL",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
			},
		},
		Action: setupAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/openrange-trading/openrange/internal/config"
	"github.com/openrange-trading/openrange/internal/version"
)

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	var cfg config.Config

	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		fmt.Println(schemaJSON)

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(output), err)
	}

	if err := os.WriteFile(output, []byte(schemaJSON), 0o644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	fmt.Printf("Schema written to %s\n", output)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "schema",
		Usage:   "Print the JSON schema for the configuration file",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the schema to a file instead of stdout",
			},
		},
		Action: schemaAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

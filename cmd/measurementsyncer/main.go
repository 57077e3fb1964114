package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "measurementsyncer",
		Usage:  "Synchronize metering point measurements from the registry and publish them as events",
		Flags:  appFlags(),
		Before: loadEnvFile,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the measurements syncer",
				Flags:  runFlags(),
				Action: run,
			},
			{
				Name:   "remove",
				Usage:  "Remove the persisted sliding window of a metering point",
				Flags:  removeFlags(),
				Action: remove,
			},
		},
	}
}

// loadEnvFile loads --env-file into the environment so that command flags
// bound to env vars pick it up. Variables already set are not overridden.
func loadEnvFile(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

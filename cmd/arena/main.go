package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/obslog"
)

func main() {
	app := &cli.Command{
		Name:  "arena",
		Usage: "two-player realtime chess server",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the websocket and query servers",
				Action: serveAction,
			},
			{
				Name:      "standings",
				Usage:     "print the standings ledger",
				ArgsUsage: "[top N | player NAME]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "table", Usage: "table or yaml"},
				},
				Action: standingsAction,
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		obslog.L().Error("arena_exit", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := obslog.Init(cfg.LogOptions()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/urfave/cli/v3"
)

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("verbose") {
		return logger.NewDevelopmentLogger()
	}

	return logger.NewLogger()
}

func dateFlag(name string, usage string) *cli.TimestampFlag {
	return &cli.TimestampFlag{
		Name:  name,
		Usage: usage + " in `YYYY-MM-DD` format",
		Config: cli.TimestampConfig{
			Layouts: []string{"2006-01-02", time.RFC3339},
		},
	}
}

func main() {
	// .env is optional, flags and the real environment still apply without it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:  "argo-backtest",
		Usage: "Backtest entry and exit rule combinations over daily price data",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("ARGO_BACKTEST_VERBOSE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run strategy configs over data files and write results",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine config (YAML)",
						Sources:  cli.EnvVars("ARGO_BACKTEST_CONFIG"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    "Glob of strategy config files, one entry/exit combination each",
						Sources:  cli.EnvVars("ARGO_BACKTEST_STRATEGIES"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Glob of parquet or csv data files",
						Sources:  cli.EnvVars("ARGO_BACKTEST_DATA"),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Results folder, cleared before the run",
						Value:   "results",
						Sources: cli.EnvVars("ARGO_BACKTEST_RESULTS"),
					},
				},
				Action: runAction,
			},
			{
				Name:  "sweep",
				Usage: "Compare entry/exit combinations over one data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Parquet or csv data file",
						Sources:  cli.EnvVars("ARGO_BACKTEST_DATA"),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Sweep config (YAML). Defaults to every curated entry against every exit",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "trades compounds trade returns, account sizes against cash",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent combinations, 0 means one per CPU",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Rows of the ranking to print, 0 prints all",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "baseline",
						Usage: "Entry+exit label to compare every combination against",
						Value: "volatility_breakout+next_bar",
					},
					dateFlag("start", "First bar to load"),
					dateFlag("end", "Last bar to load"),
				},
				Action: sweepAction,
			},
			{
				Name:  "enrich",
				Usage: "Precompute indicator columns and write them with the bars",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Parquet or csv data file",
						Sources:  cli.EnvVars("ARGO_BACKTEST_DATA"),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, .csv or parquet. Defaults to <data>_enriched",
					},
					&cli.StringSliceFlag{
						Name:    "indicator",
						Aliases: []string{"i"},
						Usage:   "Indicator to attach, repeatable",
						Value:   []string{"atr", "momentum"},
					},
					dateFlag("start", "First bar to load"),
					dateFlag("end", "Last bar to load"),
				},
				Action: enrichAction,
			},
			{
				Name:   "list",
				Usage:  "List the registered entry and exit strategies",
				Action: listAction,
			},
			{
				Name:  "schema",
				Usage: "Print a JSON schema: the engine config, or the params of one strategy",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "entry", Usage: "Entry strategy name"},
					&cli.StringFlag{Name: "exit", Usage: "Exit strategy name"},
				},
				Action: schemaAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

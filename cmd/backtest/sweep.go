package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func sweepAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	config := sweep.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		if config, err = sweep.LoadConfig(path); err != nil {
			return err
		}
	}

	if mode := cmd.String("mode"); mode != "" {
		config.Mode = sweep.Mode(mode)
	}

	if cmd.IsSet("workers") {
		config.Workers = int(cmd.Int("workers"))
	}

	series, err := loadSeries(cmd, log)
	if err != nil {
		return err
	}

	combinations := config.Expand()
	bar := progressbar.Default(int64(len(combinations)))
	bar.Describe(fmt.Sprintf("Sweeping %s", series.Symbol))

	options := config.Options()
	options.OnProgress = func(done int, _ int) {
		_ = bar.Set(done)
	}

	outcomes, err := sweep.NewRunner(options, log).Run(ctx, series, combinations)
	if err != nil {
		return err
	}

	_ = bar.Finish()

	fmt.Println(TitleStyle.Render(fmt.Sprintf("%s: %d bars, %d combinations", series.Symbol, series.Len(), len(combinations))))
	fmt.Println(RenderRanking(sweep.Rank(outcomes), int(cmd.Int("top"))))

	if baseline := cmd.String("baseline"); baseline != "" {
		if err := printBaseline(outcomes, baseline); err != nil {
			return err
		}
	}

	if failures := sweep.Failures(outcomes); len(failures) > 0 {
		fmt.Println(RenderFailures(failures))
	}

	return nil
}

func printBaseline(outcomes []sweep.Outcome, label string) error {
	entryName, exitName, ok := strings.Cut(label, "+")
	if !ok {
		return fmt.Errorf("baseline must look like entry+exit, got %q", label)
	}

	baseline, found := sweep.Find(outcomes, entryName, exitName)
	if !found {
		fmt.Println(HelpStyle.Render(fmt.Sprintf("Baseline %s was not part of the sweep", label)))
		return nil
	}

	improvements, err := sweep.CompareToBaseline(baseline, outcomes)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Against " + label))
	fmt.Println(RenderImprovements(improvements))

	return nil
}

func loadSeries(cmd *cli.Command, log *logger.Logger) (types.Series, error) {
	source, err := datasource.NewDataSource("", log)
	if err != nil {
		return types.Series{}, err
	}
	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return types.Series{}, err
	}

	return source.LoadSeries(timeFlag(cmd, "start"), timeFlag(cmd, "end"))
}

func timeFlag(cmd *cli.Command, name string) optional.Option[time.Time] {
	if !cmd.IsSet(name) {
		return optional.None[time.Time]()
	}

	return optional.Some(cmd.Timestamp(name))
}

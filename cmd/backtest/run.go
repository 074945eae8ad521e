package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read engine config: %w", err)
	}

	source, err := datasource.NewDataSource("", log)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	backtester := engine_v1.NewBacktestEngineV1()

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetConfigPath(cmd.String("strategy")); err != nil {
		return err
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	return backtester.Run(ctx, progressCallbacks())
}

// progressCallbacks draws one progress bar per run and prints where its results went.
func progressCallbacks() engine.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(totalConfigs int, totalDataFiles int) error {
		fmt.Println(TitleStyle.Render(fmt.Sprintf("Backtesting %d strategies over %d data files", totalConfigs, totalDataFiles)))
		return nil
	})

	onRunStart := engine.OnRunStartCallback(func(_ string, _ int, configName string, _ int, dataFilePath string, totalDataPoints int) error {
		bar = progressbar.Default(int64(totalDataPoints))
		bar.Describe(fmt.Sprintf("Processing %s with %s", filepath.Base(dataFilePath), configName))

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(current int, _ int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	onRunEnd := engine.OnRunEndCallback(func(_ int, _ string, _ int, _ string, resultFolderPath string) {
		if bar != nil {
			_ = bar.Finish()
		}

		fmt.Println(HelpStyle.Render("Results written to " + resultFolderPath))
	})

	onEnd := engine.OnBacktestEndCallback(func(err error) {
		if err != nil {
			fmt.Println(ErrorStyle.Render("Backtest failed: " + err.Error()))
		}
	})

	return engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnRunStart:      &onRunStart,
		OnRunEnd:        &onRunEnd,
		OnProcessData:   &onProcessData,
	}
}

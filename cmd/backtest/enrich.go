package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// enrichAction precomputes indicator columns and writes them next to the bars, so later
// runs read them from the file instead of deriving them.
func enrichAction(_ context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	series, err := loadSeries(cmd, log)
	if err != nil {
		return err
	}

	names := make([]types.IndicatorType, 0, len(cmd.StringSlice("indicator")))
	for _, name := range cmd.StringSlice("indicator") {
		names = append(names, types.IndicatorType(strings.TrimSpace(name)))
	}

	series, err = indicator.Enrich(indicator.NewDefaultRegistry(), series, names...)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		output = enrichedPath(cmd.String("data"))
	}

	if err := datasource.WriteSeries(series, output, log); err != nil {
		return err
	}

	log.Info("Series enriched",
		zap.String("output", output),
		zap.Int("bars", series.Len()),
		zap.Int("columns", len(series.Columns)),
	)

	fmt.Println(TitleStyle.Render(fmt.Sprintf("Wrote %d bars of %s to %s", series.Len(), series.Symbol, output)))

	return nil
}

// enrichedPath is input.parquet -> input_enriched.parquet, keeping csv inputs as csv.
func enrichedPath(input string) string {
	ext := filepath.Ext(input)
	if !strings.EqualFold(ext, ".csv") {
		ext = ".parquet"
	}

	return strings.TrimSuffix(input, filepath.Ext(input)) + "_enriched" + ext
}

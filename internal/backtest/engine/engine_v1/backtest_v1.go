package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config              BacktestEngineV1Config
	strategyConfigPaths []string
	strategyConfigs     []string
	dataPaths           []string
	resultsFolder       string
	log                 *logger.Logger
	state               *BacktestState
	datasource          datasource.DataSource
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:              EmptyConfig(),
		strategyConfigPaths: nil,
		strategyConfigs:     nil,
		dataPaths:           nil,
		resultsFolder:       "",
		log:                 logger.NewNopLogger(),
		state:               nil,
		datasource:          nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	b.log = log

	b.log.Debug("Backtest engine initialized",
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.String("broker", string(b.config.Broker)),
		zap.Float64("commission", b.config.Commission),
		zap.Float64("slippage", b.config.Slippage),
	)

	if b.state != nil {
		_ = b.state.Close()
	}

	b.state, err = NewBacktestState(b.log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to create backtest state", err)
	}

	if err := b.state.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to initialize state", err)
	}

	return nil
}

// SetConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetConfigPath(path string) error {
	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set config path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "invalid config path %s", path)
	}

	b.strategyConfigPaths = files
	b.strategyConfigs = nil
	b.log.Debug("Config paths set",
		zap.Strings("files", files),
	)

	return nil
}

// SetConfigContent implements engine.Engine.
func (b *BacktestEngineV1) SetConfigContent(configs []string) error {
	b.strategyConfigs = configs
	b.strategyConfigPaths = nil
	b.log.Debug("Config content set",
		zap.Int("count", len(configs)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "invalid data path %s", path)
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "failed to resolve %s", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(datasource datasource.DataSource) error {
	b.datasource = datasource

	return nil
}

// configItem is one strategy config document and the name its results are filed under.
type configItem struct {
	name    string
	content string
}

func (b *BacktestEngineV1) loadConfigs() ([]configItem, error) {
	var configs []configItem

	if len(b.strategyConfigs) > 0 {
		for i, content := range b.strategyConfigs {
			configs = append(configs, configItem{
				name:    fmt.Sprintf("config_%d", i),
				content: content,
			})
		}

		return configs, nil
	}

	for _, configPath := range b.strategyConfigPaths {
		content, err := os.ReadFile(configPath)
		if err != nil {
			b.log.Error("Failed to read config",
				zap.String("config", configPath),
				zap.Error(err),
			)

			return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to read strategy config %s", configPath)
		}

		configs = append(configs, configItem{
			name:    configPath,
			content: string(content),
		})
	}

	return configs, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return err
	}

	configs, err := b.loadConfigs()
	if err != nil {
		return err
	}

	// remove results from a previous run
	if _, statErr := os.Stat(b.resultsFolder); statErr == nil {
		if err := os.RemoveAll(b.resultsFolder); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to clean results folder", err)
		}
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(configs), len(b.dataPaths)); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	for configIndex, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", err)
		}

		if err := b.runConfig(ctx, callbacks, configIndex, len(configs), cfg); err != nil {
			return err
		}
	}

	return nil
}

func (b *BacktestEngineV1) runConfig(ctx context.Context, callbacks engine.LifecycleCallbacks, configIndex int, totalConfigs int, cfg configItem) error {
	strategy, err := ParseStrategyConfig(cfg.content)
	if err != nil {
		return errors.Wrapf(errors.GetCode(err), err, "invalid strategy config %s", cfg.name)
	}

	provider, policy, err := strategy.Build()
	if err != nil {
		return err
	}

	if callbacks.OnStrategyStart != nil {
		if err := (*callbacks.OnStrategyStart)(configIndex, strategy.Name, totalConfigs); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "strategy start callback failed", err)
		}
	}

	if callbacks.OnStrategyEnd != nil {
		defer (*callbacks.OnStrategyEnd)(configIndex, strategy.Name)
	}

	for dataIndex, dataPath := range b.dataPaths {
		if err := b.runData(ctx, callbacks, configIndex, cfg, strategy, provider, policy, dataIndex, dataPath); err != nil {
			return err
		}
	}

	return nil
}

func (b *BacktestEngineV1) runData(
	ctx context.Context,
	callbacks engine.LifecycleCallbacks,
	configIndex int,
	cfg configItem,
	strategy StrategyConfig,
	provider entry.Provider,
	policy exit.Policy,
	dataIndex int,
	dataPath string,
) error {
	if b.state == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "backtest state is nil")
	}

	resultFolderPath := getResultFolder(cfg.name, dataPath, b, strategy)

	b.log.Debug("Running strategy",
		zap.String("strategy", strategy.Name),
		zap.String("config", cfg.name),
		zap.String("data", dataPath),
		zap.String("result", resultFolderPath),
	)

	if err := b.datasource.Initialize(dataPath); err != nil {
		return errors.Wrapf(errors.GetCode(err), err, "failed to initialize data source for %s", dataPath)
	}

	series, err := b.datasource.LoadSeries(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return errors.Wrapf(errors.GetCode(err), err, "failed to load %s", dataPath)
	}

	runID := uuid.New().String()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, configIndex, strategy.Name, dataIndex, dataPath, series.Len()); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	onBar := func(current int, total int) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", err)
		}

		if callbacks.OnProcessData != nil {
			return (*callbacks.OnProcessData)(current, total)
		}

		return nil
	}

	result, err := run(series, provider, policy, b.config.RunConfig(), onBar)
	if err != nil {
		if errors.InChain(err, errors.ErrCodeBacktestCancelled) {
			return errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", err)
		}

		return err
	}

	result.ID = runID

	b.log.Info("Run finished",
		zap.String("strategy", strategy.Name),
		zap.String("symbol", result.Symbol),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("total_return", result.TotalReturn()),
	)

	if err := b.writeResults(result, strategy, dataPath, resultFolderPath); err != nil {
		return err
	}

	if err := b.state.Cleanup(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to cleanup state", err)
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(configIndex, strategy.Name, dataIndex, dataPath, resultFolderPath)
	}

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) writeResults(result *types.Result, strategy StrategyConfig, dataPath string, resultFolderPath string) error {
	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create result folder", err)
	}

	if err := b.state.Record(result); err != nil {
		return err
	}

	stats, err := b.state.GetStats(result, types.StrategyInfo{
		Entry:       strategy.Entry.Name,
		EntryParams: strategy.Entry.Params,
		Exit:        strategy.Exit.Name,
		ExitParams:  strategy.Exit.Params,
	})
	if err != nil {
		return err
	}

	tradesPath, equityPath, err := b.state.Write(resultFolderPath)
	if err != nil {
		return err
	}

	stats.TradesFilePath = tradesPath
	stats.EquityFilePath = equityPath
	stats.DataPath = dataPath

	if err := types.WriteTradeStats(filepath.Join(resultFolderPath, "stats.yaml"), []types.TradeStats{stats}); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.state == nil {
		b.log.Error("Engine is not initialized")

		return errors.New(errors.ErrCodeBacktestStateNil, "engine is not initialized")
	}

	if len(b.strategyConfigPaths) == 0 && len(b.strategyConfigs) == 0 {
		b.log.Error("No strategy configs loaded")

		return errors.New(errors.ErrCodeBacktestConfigError, "no strategy configs loaded")
	}

	if len(b.dataPaths) == 0 {
		b.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"gopkg.in/yaml.v3"
)

const (
	configDir        = "./config"
	schemaName       = "backtest-engine-v1-config.json"
	engineConfigName = "backtest-engine-v1-config.yaml"
	strategyName     = "strategy-config.yaml"
	sweepConfigName  = "sweep-config.yaml"
)

func main() {
	if err := generate(configDir); err != nil {
		log.Fatal(err)
	}
}

// generate writes the engine schema and, unless they already exist, sample engine,
// strategy and sweep configs into dir.
func generate(dir string) error {
	config := engine.EmptyConfig()
	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, engineConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		return err
	}

	strategy := engine.StrategyConfig{
		Name:  "breakout_with_atr_bands",
		Entry: engine.StrategyRef{Name: entry.NameVolatilityBreakout, Params: map[string]any{"k": 0.5}},
		Exit:  engine.StrategyRef{Name: exit.NameATR, Params: map[string]any{"take_profit_atr": 2.0, "stop_loss_atr": 1.0}},
	}
	if err := writeYAMLOnce(filepath.Join(dir, strategyName), strategy, ""); err != nil {
		return err
	}

	return writeYAMLOnce(filepath.Join(dir, sweepConfigName), sweep.DefaultConfig(), "")
}

func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if filepath.Ext(name) != ".json" {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

func getSchemaReference(name string) string {
	return "# yaml-language-server: $schema=" + name + "\n"
}

func generateSchemaFile(config engine.BacktestEngineV1Config, path string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(schemaJSON), 0o644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes the engine config with a schema reference header. An
// existing file is left untouched.
func generateSampleConfig(config engine.BacktestEngineV1Config, path string, schema string) error {
	if err := validateSchemaName(schema); err != nil {
		return err
	}

	return writeYAMLOnce(path, config, getSchemaReference(schema))
}

func writeYAMLOnce(path string, value any, header string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s to yaml: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(header+string(content)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("Sample %s generated at %s", strings.TrimSuffix(filepath.Base(path), ".yaml"), path)

	return nil
}

package sweep

import (
	"os"

	"github.com/go-playground/validator/v10"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a sweep. Combinations, when given, are used as is. Otherwise the
// cartesian product of Entries and Exits is swept, each defaulting to the curated set.
// KValues turns the sweep into a k grid of every entry with a next_bar exit.
type Config struct {
	Mode           Mode                  `yaml:"mode" validate:"omitempty,oneof=trades account"`
	InitialCapital float64               `yaml:"initial_capital" validate:"gte=0"`
	Broker         commission_fee.Broker `yaml:"broker" validate:"omitempty,oneof=percentage zero_commission"`
	Commission     float64               `yaml:"commission" validate:"gte=0"`
	Slippage       float64               `yaml:"slippage" validate:"gte=0"`
	Workers        int                   `yaml:"workers" validate:"gte=0"`
	K              float64               `yaml:"k" validate:"gte=0"`
	KValues        []float64             `yaml:"k_values" validate:"dive,gte=0"`
	Entries        []Spec                `yaml:"entries" validate:"dive"`
	Exits          []Spec                `yaml:"exits" validate:"dive"`
	Combinations   []Combination         `yaml:"combinations" validate:"dive"`
}

// DefaultConfig sweeps every curated entry against every exit with k 0.5 and the
// costs of the comparison runs.
func DefaultConfig() Config {
	return Config{
		Mode:       ModeTrades,
		Broker:     commission_fee.BrokerPercentage,
		Commission: 0.001,
		Slippage:   0.002,
		K:          0.5,
	}
}

// LoadConfig reads a YAML sweep config. Missing fields keep DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to read sweep config %s", path)
	}

	return ParseConfig(content)
}

// ParseConfig decodes and validates a YAML sweep config.
func ParseConfig(content []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse sweep config", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid sweep config", err)
	}

	return config, nil
}

// Expand resolves the combinations the config describes.
func (c Config) Expand() []Combination {
	if len(c.Combinations) > 0 {
		return c.Combinations
	}

	entries := c.Entries
	if len(entries) == 0 {
		entries = DefaultEntries(c.K)
	}

	if len(c.KValues) > 0 {
		var combinations []Combination
		for _, e := range entries {
			combinations = append(combinations, KGrid(e, c.KValues)...)
		}

		return combinations
	}

	exits := c.Exits
	if len(exits) == 0 {
		exits = DefaultExits()
	}

	return Cartesian(entries, exits)
}

// Options converts the config into runner options.
func (c Config) Options() Options {
	runConfig := engine.RunConfig{
		InitialCapital: c.InitialCapital,
		Slippage:       c.Slippage,
		Commission:     c.Commission,
		Broker:         c.Broker,
	}

	commission := c.Commission
	if c.Broker == commission_fee.BrokerZero {
		commission = 0
	}

	return Options{
		Mode:      c.Mode,
		Costs:     engine.Costs{Slippage: c.Slippage, Commission: commission},
		RunConfig: runConfig,
		Workers:   c.Workers,
	}
}

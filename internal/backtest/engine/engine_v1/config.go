package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital of every run,minimum=0" validate:"gt=0"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations" validate:"oneof=percentage zero_commission"`
	Commission     float64                    `yaml:"commission" json:"commission" jsonschema:"title=Commission,description=Commission rate charged on each leg by the percentage broker,minimum=0" validate:"gte=0"`
	Slippage       float64                    `yaml:"slippage" json:"slippage" jsonschema:"title=Slippage,description=Fraction by which fills move against the trade,minimum=0" validate:"gte=0"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialCapital *float64              `yaml:"initial_capital"`
		Broker         commission_fee.Broker `yaml:"broker"`
		Commission     float64               `yaml:"commission"`
		Slippage       float64               `yaml:"slippage"`
		StartTime      *time.Time            `yaml:"start_time"`
		EndTime        *time.Time            `yaml:"end_time"`
	}

	var config Config
	if err := value.Decode(&config); err != nil {
		return err
	}

	defaults := EmptyConfig()
	if config.InitialCapital != nil {
		defaults.InitialCapital = *config.InitialCapital
	}

	if config.Broker != "" {
		defaults.Broker = config.Broker
	}

	defaults.Commission = config.Commission
	defaults.Slippage = config.Slippage

	if config.StartTime != nil {
		defaults.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		defaults.EndTime = optional.Some(*config.EndTime)
	}

	*c = defaults

	return nil
}

// MarshalYAML omits unset start and end times so the output reads back through UnmarshalYAML.
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	type Config struct {
		InitialCapital float64               `yaml:"initial_capital"`
		Broker         commission_fee.Broker `yaml:"broker"`
		Commission     float64               `yaml:"commission"`
		Slippage       float64               `yaml:"slippage"`
		StartTime      *time.Time            `yaml:"start_time,omitempty"`
		EndTime        *time.Time            `yaml:"end_time,omitempty"`
	}

	config := Config{
		InitialCapital: c.InitialCapital,
		Broker:         c.Broker,
		Commission:     c.Commission,
		Slippage:       c.Slippage,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		config.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		config.EndTime = &end
	}

	return config, nil
}

// Validate checks the ranges of every field and that the period is not inverted.
func (c BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid engine config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeBacktestConfigError, "end_time is before start_time")
	}

	return nil
}

// RunConfig returns the account settings of one run.
func (c BacktestEngineV1Config) RunConfig() RunConfig {
	return RunConfig{
		InitialCapital: c.InitialCapital,
		Slippage:       c.Slippage,
		Commission:     c.Commission,
		Broker:         c.Broker,
	}
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 10_000_000,
		Broker:         broker,
		Commission:     0.001,
		Slippage:       0.002,
		StartTime:      optional.Some(startTime),
		EndTime:        optional.Some(endTime),
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 10_000_000,
		Broker:         commission_fee.BrokerPercentage,
		Commission:     0,
		Slippage:       0,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}

// StrategyRef names a registered entry provider or exit policy and its params.
type StrategyRef struct {
	Name   string         `yaml:"name" json:"name" jsonschema:"title=Name,description=Registered strategy name" validate:"required"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params,description=Overrides of the strategy defaults"`
}

// StrategyConfig is one entry/exit combination to backtest.
type StrategyConfig struct {
	Name  string      `yaml:"name" json:"name" jsonschema:"title=Name,description=Label of the combination in results"`
	Entry StrategyRef `yaml:"entry" json:"entry" jsonschema:"title=Entry" validate:"required"`
	Exit  StrategyRef `yaml:"exit" json:"exit" jsonschema:"title=Exit" validate:"required"`
	// EngineVersion pins the engine the combination was tuned with, e.g. "1.0.0".
	EngineVersion string `yaml:"engine_version,omitempty" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Engine version this config targets"`
}

// ParseStrategyConfig decodes and validates one strategy config document.
func ParseStrategyConfig(content string) (StrategyConfig, error) {
	var config StrategyConfig
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return StrategyConfig{}, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy config", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return StrategyConfig{}, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	if config.EngineVersion != "" {
		if err := version.CheckVersionCompatibility(version.GetVersion(), config.EngineVersion); err != nil {
			return StrategyConfig{}, errors.Wrap(errors.ErrCodeInvalidVersion, "strategy config targets another engine version", err)
		}
	}

	if config.Name == "" {
		config.Name = config.Entry.Name + "+" + config.Exit.Name
	}

	return config, nil
}

// Build instantiates the entry provider and exit policy of the combination.
func (c StrategyConfig) Build() (entry.Provider, exit.Policy, error) {
	provider, err := entry.New(c.Entry.Name, c.Entry.Params)
	if err != nil {
		return nil, nil, err
	}

	policy, err := exit.New(c.Exit.Name, c.Exit.Params)
	if err != nil {
		return nil, nil, err
	}

	return provider, policy, nil
}

package entry

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	NameVolatilityBreakout = "volatility_breakout"
	NameAdaptiveK          = "adaptive_k"
	NameDoubleBreakout     = "double_breakout"
	NameVolumeConfirmed    = "volume_confirmed"
	NameMomentumFiltered   = "momentum_filtered"
	NameGapAdjusted        = "gap_adjusted"
	NamePattern            = "pattern"
	NameMultiTimeframe     = "multi_timeframe"
	NameATRFiltered        = "atr_filtered"
	NameComposite          = "composite"
	NameFilteredBreakout   = "filtered_breakout"
)

// Factory builds a provider from user params; missing keys keep their defaults.
type Factory func(params map[string]any) (Provider, error)

type registration struct {
	factory Factory
	params  any
}

var registry = map[string]registration{
	NameVolatilityBreakout: {NewVolatilityBreakout, VolatilityBreakoutParams{}},
	NameAdaptiveK:          {NewAdaptiveK, AdaptiveKParams{}},
	NameDoubleBreakout:     {NewDoubleBreakout, DoubleBreakoutParams{}},
	NameVolumeConfirmed:    {NewVolumeConfirmed, VolumeConfirmedParams{}},
	NameMomentumFiltered:   {NewMomentumFiltered, MomentumFilteredParams{}},
	NameGapAdjusted:        {NewGapAdjusted, GapAdjustedParams{}},
	NamePattern:            {NewPattern, PatternParams{}},
	NameMultiTimeframe:     {NewMultiTimeframe, MultiTimeframeParams{}},
	NameATRFiltered:        {NewATRFiltered, ATRFilteredParams{}},
	NameComposite:          {NewComposite, CompositeParams{}},
	NameFilteredBreakout:   {NewFilteredBreakout, FilteredBreakoutParams{}},
}

// New builds the named provider.
func New(name string, params map[string]any) (Provider, error) {
	reg, ok := registry[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownEntryStrategy, "unknown entry strategy: %s", name)
	}

	provider, err := reg.factory(params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid params for entry strategy %s", name)
	}

	return provider, nil
}

// Names lists the registered providers in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Schema returns the JSON schema of the named provider's params.
func Schema(name string) (string, error) {
	reg, ok := registry[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeUnknownEntryStrategy, "unknown entry strategy: %s", name)
	}

	return strategy.ParamsSchemaJSON(name, reg.params)
}

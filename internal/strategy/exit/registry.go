package exit

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	NameNextBar       = "next_bar"
	NameATR           = "atr"
	NameMovingAverage = "ma"
	NameMomentum      = "momentum"
	NameVolatility    = "volatility"
	NamePartialProfit = "partial_profit"
	NameTimeWeighted  = "time_weighted"
	NameBollinger     = "bollinger"
	NameADX           = "adx"
	NamePattern       = "pattern"
	NameComposite     = "composite"
)

// Factory builds a policy from user params; missing keys keep their defaults.
type Factory func(params map[string]any) (Policy, error)

type registration struct {
	factory Factory
	params  any
}

var registry = map[string]registration{
	NameNextBar:       {NewNextBar, NextBarParams{}},
	NameATR:           {NewATR, ATRParams{}},
	NameMovingAverage: {NewMovingAverage, MovingAverageParams{}},
	NameMomentum:      {NewMomentum, MomentumParams{}},
	NameVolatility:    {NewVolatility, VolatilityParams{}},
	NamePartialProfit: {NewPartialProfit, PartialProfitParams{}},
	NameTimeWeighted:  {NewTimeWeighted, TimeWeightedParams{}},
	NameBollinger:     {NewBollinger, BollingerParams{}},
	NameADX:           {NewADX, ADXParams{}},
	NamePattern:       {NewPattern, PatternParams{}},
	NameComposite:     {NewComposite, CompositeParams{}},
}

// New builds the named policy.
func New(name string, params map[string]any) (Policy, error) {
	reg, ok := registry[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownExitStrategy, "unknown exit strategy: %s", name)
	}

	policy, err := reg.factory(params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid params for exit strategy %s", name)
	}

	return policy, nil
}

// Names lists the registered policies in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Schema returns the JSON schema of the named policy's params.
func Schema(name string) (string, error) {
	reg, ok := registry[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeUnknownExitStrategy, "unknown exit strategy: %s", name)
	}

	return strategy.ParamsSchemaJSON(name, reg.params)
}

// ExitsOnEntryBar reports whether the policy is evaluated on the bar it opened on.
func ExitsOnEntryBar(policy Policy) bool {
	sameBar, ok := policy.(SameBarExit)

	return ok && sameBar.ExitsOnEntryBar()
}

package sweep

import (
	"math"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
)

// Spec names a registered entry or exit strategy and its params.
type Spec = engine.StrategyRef

// Combination is one entry/exit pair of a sweep.
type Combination struct {
	Entry Spec `yaml:"entry" json:"entry" validate:"required"`
	Exit  Spec `yaml:"exit" json:"exit" validate:"required"`

	provider entry.Provider
	policy   exit.Policy
}

// Prebuilt wraps an already constructed provider and policy, bypassing the registries.
func Prebuilt(provider entry.Provider, policy exit.Policy) Combination {
	return Combination{
		Entry:    Spec{Name: provider.Name()},
		Exit:     Spec{Name: policy.Name()},
		provider: provider,
		policy:   policy,
	}
}

// Label is "entry+exit".
func (c Combination) Label() string {
	return c.Entry.Name + "+" + c.Exit.Name
}

func (c Combination) build() (entry.Provider, exit.Policy, error) {
	provider := c.provider
	if provider == nil {
		var err error
		if provider, err = entry.New(c.Entry.Name, c.Entry.Params); err != nil {
			return nil, nil, err
		}
	}

	policy := c.policy
	if policy == nil {
		var err error
		if policy, err = exit.New(c.Exit.Name, c.Exit.Params); err != nil {
			return nil, nil, err
		}
	}

	return provider, policy, nil
}

// Cartesian pairs every entry with every exit, entries in the outer loop.
func Cartesian(entries []Spec, exits []Spec) []Combination {
	combinations := make([]Combination, 0, len(entries)*len(exits))
	for _, e := range entries {
		for _, x := range exits {
			combinations = append(combinations, Combination{Entry: e, Exit: x})
		}
	}

	return combinations
}

// DefaultEntries is the curated entry set around a base k. Providers with a k range
// get k-0.2 and k+0.2, floored at zero.
func DefaultEntries(k float64) []Spec {
	return []Spec{
		{Name: entry.NameVolatilityBreakout, Params: map[string]any{"k": k}},
		{Name: entry.NameAdaptiveK, Params: kRange(k)},
		{Name: entry.NameDoubleBreakout, Params: map[string]any{"k1": k, "k2": k + 0.2}},
		{Name: entry.NameVolumeConfirmed, Params: map[string]any{"k": k, "volume_multiplier": 1.5}},
		{Name: entry.NameMomentumFiltered, Params: map[string]any{"k": k, "momentum_threshold": 0.02}},
		{Name: entry.NameGapAdjusted, Params: map[string]any{"k": k, "gap_threshold": 0.02}},
		{Name: entry.NamePattern, Params: map[string]any{"k": k, "pattern_lookback": 3}},
		{Name: entry.NameMultiTimeframe, Params: map[string]any{"k": k, "confirm_periods": []int{5, 20}}},
		{Name: entry.NameATRFiltered, Params: map[string]any{"k": k, "min_atr_percentile": 30}},
		{Name: entry.NameComposite, Params: map[string]any{"k": k, "min_score": 3}},
	}
}

// DefaultExits is every exit policy with the parameters used for comparisons.
func DefaultExits() []Spec {
	return []Spec{
		{Name: exit.NameNextBar},
		{Name: exit.NameATR, Params: map[string]any{
			"take_profit_atr": 2.0, "stop_loss_atr": 1.0, "trailing_stop_atr": 1.5, "max_holding_days": 20,
		}},
		{Name: exit.NameMovingAverage, Params: map[string]any{"short_ma": 5, "long_ma": 20, "max_holding_days": 20}},
		{Name: exit.NameMomentum, Params: map[string]any{"min_score": 2, "max_holding_days": 10}},
		{Name: exit.NameVolatility, Params: map[string]any{
			"high_vol_multiplier": 1.2, "low_vol_multiplier": 0.8, "max_holding_days": 15,
		}},
		{Name: exit.NamePartialProfit, Params: map[string]any{
			"profit_levels": []float64{0.03, 0.05, 0.08}, "sell_ratios": []float64{0.3, 0.3, 0.2}, "stop_loss": -0.02,
		}},
		{Name: exit.NameTimeWeighted, Params: map[string]any{
			"loss_thresholds": []float64{0, -0.01, -0.02, -0.03}, "max_days": []int{1, 2, 3, 4}, "exceptional_return": 0.05,
		}},
		{Name: exit.NameBollinger, Params: map[string]any{"bb_period": 20, "bb_std": 2.0, "max_holding_days": 15}},
		{Name: exit.NameADX, Params: map[string]any{
			"strong_trend_adx": 25.0, "weak_trend_adx": 20.0, "strong_trend_days": 10, "weak_trend_days": 5,
		}},
		{Name: exit.NamePattern, Params: map[string]any{"consecutive_up_days": 3, "max_holding_days": 5}},
		{Name: exit.NameComposite, Params: map[string]any{"min_score": 60, "max_holding_days": 10}},
	}
}

// KGrid rewrites the k of one entry spec for every value in ks. The exit is next_bar, so
// the grid isolates the entry rule.
func KGrid(base Spec, ks []float64) []Combination {
	combinations := make([]Combination, 0, len(ks))
	for _, k := range ks {
		combinations = append(combinations, Combination{
			Entry: withK(base, k),
			Exit:  Spec{Name: exit.NameNextBar},
		})
	}

	return combinations
}

func withK(base Spec, k float64) Spec {
	params := make(map[string]any, len(base.Params)+1)
	for key, value := range base.Params {
		params[key] = value
	}

	switch {
	case has(params, "k_min"), base.Name == entry.NameAdaptiveK:
		for key, value := range kRange(k) {
			params[key] = value
		}
	case has(params, "k1"), base.Name == entry.NameDoubleBreakout:
		params["k1"] = k
		params["k2"] = k + 0.2
	default:
		params["k"] = k
	}

	return Spec{Name: base.Name, Params: params}
}

func kRange(k float64) map[string]any {
	return map[string]any{"k_min": math.Max(0, k-0.2), "k_max": k + 0.2}
}

func has(params map[string]any, key string) bool {
	_, ok := params[key]
	return ok
}

package exit

import (
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const (
	NextBarAtOpen  = "open"
	NextBarAtClose = "close"
)

// NextBarParams configures the next-bar exit.
type NextBarParams struct {
	ExitAt string `mapstructure:"exit_at" json:"exit_at" jsonschema:"enum=open,enum=close,default=open" validate:"oneof=open close"`
}

// NextBar sells on the bar the position was opened, at its open by default. Paired with a
// breakout entry this is buying at the breakout level and selling at the next open.
type NextBar struct {
	params NextBarParams
}

func NewNextBar(params map[string]any) (Policy, error) {
	p := NextBarParams{ExitAt: NextBarAtOpen}
	if err := strategy.DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &NextBar{params: p}, nil
}

func (n *NextBar) Name() string {
	return NameNextBar
}

func (n *NextBar) Params() map[string]any {
	return strategy.EncodeParams(n.params)
}

func (n *NextBar) ExitsOnEntryBar() bool {
	return true
}

func (n *NextBar) Bind(series types.Series, _ types.EntryTable) (Evaluator, error) {
	return &nextBarEvaluator{series: series, atOpen: n.params.ExitAt == NextBarAtOpen}, nil
}

type nextBarEvaluator struct {
	series types.Series
	atOpen bool
}

func (e *nextBarEvaluator) OnEntry(types.Position, int) {}

func (e *nextBarEvaluator) Evaluate(_ types.Position, index int) (Decision, error) {
	if e.atOpen {
		return ExitAt(types.ExitReasonNextBar, e.series.Data[index].Open), nil
	}

	return ExitAtClose(types.ExitReasonNextBar), nil
}

package engine

import (
	"math"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RunConfig holds the account and cost settings of one simulation.
type RunConfig struct {
	InitialCapital float64
	Slippage       float64
	Commission     float64
	// Broker selects the commission model. Empty means percentage.
	Broker commission_fee.Broker
}

// DefaultRunConfig is ten million of capital with no costs.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		InitialCapital: 10_000_000,
		Broker:         commission_fee.BrokerPercentage,
	}
}

func (c RunConfig) validate() error {
	if math.IsNaN(c.InitialCapital) || math.IsInf(c.InitialCapital, 0) || c.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %v", c.InitialCapital)
	}

	return c.costs().Validate()
}

func (c RunConfig) fee() commission_fee.CommissionFee {
	broker := c.Broker
	if broker == "" {
		broker = commission_fee.BrokerPercentage
	}

	return commission_fee.GetCommissionFeeHandler(broker, c.Commission)
}

// costs uses the rate of the commission model, so a zero commission broker
// ignores Commission on both the account and the trade returns.
func (c RunConfig) costs() Costs {
	return Costs{Slippage: c.Slippage, Commission: c.fee().Rate().InexactFloat64()}
}

// OnBarCallback is invoked after every bar of a run.
type OnBarCallback func(current int, total int) error

// Run simulates the entry provider and exit policy over the series with a cash account:
// positions are sized to the available cash and the equity curve is marked every bar.
func Run(series types.Series, provider entry.Provider, policy exit.Policy, config RunConfig) (*types.Result, error) {
	return run(series, provider, policy, config, nil)
}

func run(series types.Series, provider entry.Provider, policy exit.Policy, config RunConfig, onBar OnBarCallback) (*types.Result, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}

	entries, err := GenerateEntries(series, provider)
	if err != nil {
		return nil, err
	}

	machine, err := NewPositionStateMachine(series, entries, policy, config.costs())
	if err != nil {
		return nil, err
	}

	account := NewAccount(config.InitialCapital, config.fee())
	result := newResult(series, provider, policy, config.InitialCapital)

	firstClose := series.Data[0].Close
	lastValidClose := math.NaN()
	previousTotal := config.InitialCapital

	for i, bar := range series.Data {
		step, err := machine.Step(i, account.Size)
		if err != nil {
			return nil, err
		}

		if step.Entered {
			account.Buy(step.EntryShares, step.EntryFill)
		}

		if step.Partial.IsSome() {
			leg := step.Partial.Unwrap()
			account.Sell(leg.Shares, leg.Price)
		}

		row := types.ResultRow{
			Time:        bar.Time,
			Close:       bar.Close,
			EntrySignal: entries.Rows[i].EntrySignal,
		}

		if step.Trade.IsSome() {
			trade := step.Trade.Unwrap()
			account.Sell(step.ExitShares, trade.ExitPrice)

			row.ExitSignal = true
			row.ExitReason = trade.ExitReason
			row.HoldingDays = trade.HoldingDays
			row.TradeReturns = trade.Return
			result.Trades = append(result.Trades, trade)
		} else if step.Position.IsOpen {
			row.Position = step.Position.Remaining
			row.HoldingDays = step.Position.HoldingDays
		}

		if step.Partial.IsSome() && step.Trade.IsNone() {
			row.ExitReason = step.Partial.Unwrap().Reason
		}

		if types.IsValidPrice(bar.Close) {
			lastValidClose = bar.Close
		}

		mark := lastValidClose
		if math.IsNaN(mark) {
			mark = 0
		}

		row.Cash = account.Cash()
		row.Shares = account.Shares()
		row.StockValue = account.StockValue(mark)
		row.TotalValue = account.TotalValue(mark)
		row.CumulativeReturns = row.TotalValue / config.InitialCapital
		row.BuyHoldReturns = bar.Close / firstClose

		if i > 0 && previousTotal != 0 {
			row.Returns = row.TotalValue/previousTotal - 1
		}

		previousTotal = row.TotalValue
		result.Rows = append(result.Rows, row)

		if onBar != nil {
			if err := onBar(i+1, series.Len()); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "bar callback failed", err)
			}
		}
	}

	if position := machine.Position(); position.IsOpen {
		result.OpenPosition = optional.Some(position)
	}

	result.Fees = account.Fees()

	return result, nil
}

// GenerateEntries runs the provider on a private copy of the series and checks the table is total.
func GenerateEntries(series types.Series, provider entry.Provider) (types.EntryTable, error) {
	entries, err := provider.Generate(series.Clone())
	if err != nil {
		return types.EntryTable{}, errors.Wrapf(errors.ErrCodeSignalProviderFailed, err, "entry provider %s failed", provider.Name())
	}

	if entries.Len() != series.Len() {
		return types.EntryTable{}, errors.Newf(errors.ErrCodeSignalLengthMismatch,
			"entry provider %s returned %d rows for %d bars", provider.Name(), entries.Len(), series.Len())
	}

	return entries, nil
}

func newResult(series types.Series, provider entry.Provider, policy exit.Policy, initialCapital float64) *types.Result {
	return &types.Result{
		ID:             uuid.New().String(),
		Symbol:         series.Symbol,
		EntryStrategy:  provider.Name(),
		ExitStrategy:   policy.Name(),
		InitialCapital: initialCapital,
		Rows:           make([]types.ResultRow, 0, series.Len()),
		Trades:         nil,
		OpenPosition:   optional.None[types.Position](),
	}
}

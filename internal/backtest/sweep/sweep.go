// Package sweep runs many entry/exit combinations over one price series and ranks them.
//
// Combinations are independent: each one gets its own copy of the series, and a failing
// or panicking combination is recorded on its Outcome without stopping the others.
package sweep

import (
	"context"
	"runtime"
	"sort"
	"sync"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/performance"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode selects which driver evaluates a combination.
type Mode string

const (
	// ModeTrades compounds trade returns without an account.
	ModeTrades Mode = "trades"
	// ModeAccount sizes positions against a cash account.
	ModeAccount Mode = "account"
)

// ProgressCallback is invoked once per finished combination. Calls are serialized.
type ProgressCallback func(done int, total int)

// Options configures a Runner.
type Options struct {
	Mode Mode
	// Costs apply in ModeTrades.
	Costs engine.Costs
	// RunConfig applies in ModeAccount.
	RunConfig engine.RunConfig
	// Workers bounds the concurrent combinations. Zero means GOMAXPROCS.
	Workers    int
	OnProgress ProgressCallback
}

// Outcome is the result of one combination. Err is set when the combination failed and
// every other field except Index and Combination is then zero.
type Outcome struct {
	Index       int
	Combination Combination
	Result      *types.Result
	// FinalCumulativeReturn is the multiple at the last bar, 1 means flat.
	FinalCumulativeReturn float64
	NumberOfTrades        int
	WinRate               float64
	AverageHoldingDays    float64
	Returns               []float64
	Summary               types.PerformanceSummary
	ExitReasons           []performance.ExitReasonStats
	Err                   error
}

// Failed reports whether the combination did not produce a result.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// TotalReturn is FinalCumulativeReturn minus one.
func (o Outcome) TotalReturn() float64 {
	return o.FinalCumulativeReturn - 1
}

// Runner evaluates combinations on a bounded worker pool.
type Runner struct {
	options Options
	log     *logger.Logger
}

func NewRunner(options Options, log *logger.Logger) *Runner {
	if options.Mode == "" {
		options.Mode = ModeTrades
	}

	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}

	if options.Mode == ModeAccount && options.RunConfig.InitialCapital == 0 {
		options.RunConfig.InitialCapital = engine.DefaultRunConfig().InitialCapital
	}

	return &Runner{options: options, log: log.Named("sweep")}
}

// Run evaluates every combination and returns the outcomes in input order. The error is
// only set when the series is unusable or ctx was cancelled. Combinations not started
// before cancellation carry a cancelled error.
func (r *Runner) Run(ctx context.Context, series types.Series, combinations []Combination) ([]Outcome, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(combinations))
	entries := cache.NewEntryCache()
	done := 0

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Workers)

	for i, combination := range combinations {
		outcomes[i] = Outcome{Index: i, Combination: combination}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].Err = errors.Wrap(errors.ErrCodeBacktestCancelled, "sweep cancelled", err)
				return nil
			}

			outcomes[i] = r.runOne(i, combination, series.Clone(), entries)

			if outcomes[i].Failed() {
				r.log.Warn("Combination failed",
					zap.String("combination", combination.Label()),
					zap.Error(outcomes[i].Err),
				)
			}

			mu.Lock()
			done++
			if r.options.OnProgress != nil {
				r.options.OnProgress(done, len(combinations))
			}
			mu.Unlock()

			return nil
		})
	}

	// Workers never return errors, failures live on the outcomes.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, errors.Wrap(errors.ErrCodeBacktestCancelled, "sweep cancelled", err)
	}

	hits, misses := entries.Stats()
	r.log.Info("Sweep finished",
		zap.Int("combinations", len(combinations)),
		zap.Int("failed", countFailed(outcomes)),
		zap.Int("entry_tables", misses),
		zap.Int("entry_table_hits", hits),
	)

	return outcomes, nil
}

func (r *Runner) runOne(index int, combination Combination, series types.Series, entries *cache.EntryCache) (outcome Outcome) {
	outcome = Outcome{Index: index, Combination: combination}

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = Outcome{
				Index:       index,
				Combination: combination,
				Err:         errors.Newf(errors.ErrCodeCombinationPanic, "combination %s panicked: %v", combination.Label(), recovered),
			}
		}
	}()

	provider, policy, err := combination.build()
	if err != nil {
		outcome.Err = errors.Wrapf(errors.ErrCodeCombinationFailed, err, "combination %s failed", combination.Label())
		return outcome
	}

	table, err := entryTable(entries, combination, provider, series)
	if err != nil {
		outcome.Err = errors.Wrapf(errors.ErrCodeCombinationFailed, err, "combination %s failed", combination.Label())
		return outcome
	}

	var result *types.Result
	if r.options.Mode == ModeAccount {
		result, err = engine.Run(series, fixedProvider{name: provider.Name(), table: table}, policy, r.options.RunConfig)
	} else {
		result, err = engine.SimulateEntries(series, table, provider.Name(), policy, r.options.Costs)
	}

	if err != nil {
		outcome.Err = errors.Wrapf(errors.ErrCodeCombinationFailed, err, "combination %s failed", combination.Label())
		return outcome
	}

	trades := performance.FromTrades(result.Trades)

	outcome.Result = result
	outcome.FinalCumulativeReturn = result.FinalCumulativeReturn()
	outcome.NumberOfTrades = trades.NumberOfTrades
	outcome.WinRate = trades.WinRate
	outcome.AverageHoldingDays = trades.AverageHoldingDays
	outcome.Returns = result.Returns()
	outcome.Summary = performance.Calculate(outcome.Returns)
	outcome.ExitReasons = performance.ExitReasonBreakdown(result.Trades)

	return outcome
}

// entryTable shares entry tables between combinations with the same entry spec.
// Prebuilt providers are not keyed by params, so they always generate.
func entryTable(entries *cache.EntryCache, combination Combination, provider entry.Provider, series types.Series) (types.EntryTable, error) {
	if combination.provider != nil {
		return engine.GenerateEntries(series, provider)
	}

	return entries.GetOrGenerate(cache.Key(combination.Entry.Name, combination.Entry.Params), func() (types.EntryTable, error) {
		return engine.GenerateEntries(series, provider)
	})
}

// fixedProvider replays a generated table.
type fixedProvider struct {
	name  string
	table types.EntryTable
}

func (f fixedProvider) Name() string {
	return f.name
}

func (f fixedProvider) Generate(types.Series) (types.EntryTable, error) {
	return f.table, nil
}

func countFailed(outcomes []Outcome) int {
	failed := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed++
		}
	}

	return failed
}

// Rank returns the successful outcomes sorted by total return, best first. Ties keep
// input order.
func Rank(outcomes []Outcome) []Outcome {
	ranked := make([]Outcome, 0, len(outcomes))
	for _, outcome := range outcomes {
		if !outcome.Failed() {
			ranked = append(ranked, outcome)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalCumulativeReturn > ranked[j].FinalCumulativeReturn
	})

	return ranked
}

// Failures returns the failed outcomes in input order.
func Failures(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed = append(failed, outcome)
		}
	}

	return failed
}

// BestPerEntry keeps the best ranked outcome of every entry strategy, in rank order.
// Run over KGrid combinations it yields the best k of each entry rule.
func BestPerEntry(outcomes []Outcome) []Outcome {
	seen := make(map[string]bool)

	var best []Outcome
	for _, outcome := range Rank(outcomes) {
		if seen[outcome.Combination.Entry.Name] {
			continue
		}

		seen[outcome.Combination.Entry.Name] = true
		best = append(best, outcome)
	}

	return best
}

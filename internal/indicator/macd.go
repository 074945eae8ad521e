package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACD represents the Moving Average Convergence Divergence indicator.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() Indicator {
	return &MACD{
		fastPeriod:   12,
		slowPeriod:   26,
		signalPeriod: 9,
	}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator. Expected parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (m *MACD) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int)")
	}

	fast, err := toPeriod(params[0], "fastPeriod")
	if err != nil {
		return err
	}

	slow, err := toPeriod(params[1], "slowPeriod")
	if err != nil {
		return err
	}

	signal, err := toPeriod(params[2], "signalPeriod")
	if err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod (%d) must be less than slowPeriod (%d)", fast, slow)
	}

	m.fastPeriod = fast
	m.slowPeriod = slow
	m.signalPeriod = signal

	return nil
}

// Compute attaches the "macd" and "macd_signal" columns.
func (m *MACD) Compute(series types.Series) (map[string][]float64, error) {
	macd, signal := CalculateMACD(series.Closes(), m.fastPeriod, m.slowPeriod, m.signalPeriod)

	return map[string][]float64{
		"macd":        macd,
		"macd_signal": signal,
	}, nil
}

// CalculateMACD returns the fast-minus-slow EMA line and its EMA signal line.
func CalculateMACD(closes []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := CalculateEMA(closes, fast)
	slowEMA := CalculateEMA(closes, slow)
	line := make([]float64, len(closes))

	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	return line, CalculateEMA(line, signal)
}

package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Indicator interface defines methods that any technical indicator must implement.
// Values before the lookback window is satisfied are NaN.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config configures the indicator parameters
	Config(params ...any) error
	// Compute returns one or more named columns aligned with the series bars
	Compute(series types.Series) (map[string][]float64, error)
}

// Attach computes the indicator and returns a copy of the series carrying its columns.
func Attach(series types.Series, indicator Indicator) (types.Series, error) {
	columns, err := indicator.Compute(series)
	if err != nil {
		return series, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s", indicator.Name())
	}

	for name, values := range columns {
		series = series.WithColumn(name, values)
	}

	return series, nil
}

// periodParam reads a single positive period from Config params, accepting int or float64.
func periodParam(params []any) (int, error) {
	if len(params) != 1 {
		return 0, errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	return toPeriod(params[0], "period")
}

func toPeriod(value any, name string) (int, error) {
	var period int

	switch v := value.(type) {
	case int:
		period = v
	case float64:
		period = int(v)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int or float", name)
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, period)
	}

	return period, nil
}

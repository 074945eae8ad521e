package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate the commission charged on one fill of the given notional value
	Calculate(notional decimal.Decimal) decimal.Decimal
	// Rate is the proportional commission used to size positions and to cost a round trip
	Rate() decimal.Decimal
}

type Broker string

const (
	BrokerPercentage Broker = "percentage"
	BrokerZero       Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerPercentage,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model of a broker. rate is only used by the
// percentage broker.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerPercentage:
		return NewPercentageCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}

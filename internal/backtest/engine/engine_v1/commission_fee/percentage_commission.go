package commission_fee

import "github.com/shopspring/decimal"

// PercentageCommissionFee charges a fixed fraction of the traded notional on every fill.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *PercentageCommissionFee) Calculate(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(c.rate)
}

func (c *PercentageCommissionFee) Rate() decimal.Decimal {
	return c.rate
}

package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// Account is the cash and share balance of one run. Cash is kept in decimal so repeated
// fills do not accumulate float drift.
type Account struct {
	cash   decimal.Decimal
	shares int64
	fee    commission_fee.CommissionFee
	fees   decimal.Decimal
}

func NewAccount(initialCapital float64, fee commission_fee.CommissionFee) *Account {
	return &Account{
		cash: decimal.NewFromFloat(initialCapital),
		fee:  fee,
	}
}

// Size returns the largest share count whose cost, commission included, fits in the cash.
func (a *Account) Size(fill float64) int64 {
	if fill <= 0 || !a.cash.IsPositive() {
		return 0
	}

	unitCost := decimal.NewFromFloat(fill).Mul(decimal.NewFromInt(1).Add(a.fee.Rate()))

	shares := a.cash.Div(unitCost).Floor().IntPart()
	// Div rounds, so the floor can land one share above what the cash covers
	if shares > 0 && unitCost.Mul(decimal.NewFromInt(shares)).GreaterThan(a.cash) {
		shares--
	}

	return shares
}

// Buy pays for shares at the fill plus commission.
func (a *Account) Buy(shares int64, fill float64) {
	notional := decimal.NewFromFloat(fill).Mul(decimal.NewFromInt(shares))
	fee := a.fee.Calculate(notional)

	a.cash = a.cash.Sub(notional).Sub(fee)
	a.shares += shares
	a.fees = a.fees.Add(fee)
}

// Sell receives the fill less commission for shares.
func (a *Account) Sell(shares int64, fill float64) {
	if shares > a.shares {
		shares = a.shares
	}

	notional := decimal.NewFromFloat(fill).Mul(decimal.NewFromInt(shares))
	fee := a.fee.Calculate(notional)

	a.cash = a.cash.Add(notional).Sub(fee)
	a.shares -= shares
	a.fees = a.fees.Add(fee)
}

func (a *Account) Cash() float64 {
	return a.cash.InexactFloat64()
}

func (a *Account) Shares() int64 {
	return a.shares
}

// Fees returns the total commission paid so far.
func (a *Account) Fees() float64 {
	return a.fees.InexactFloat64()
}

// StockValue marks the held shares at a price.
func (a *Account) StockValue(price float64) float64 {
	return decimal.NewFromInt(a.shares).Mul(decimal.NewFromFloat(price)).InexactFloat64()
}

// TotalValue is cash plus the held shares marked at a price.
func (a *Account) TotalValue(price float64) float64 {
	return a.cash.Add(decimal.NewFromInt(a.shares).Mul(decimal.NewFromFloat(price))).InexactFloat64()
}

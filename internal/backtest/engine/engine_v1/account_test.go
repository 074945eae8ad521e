package engine

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	suite.Suite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (suite *AccountTestSuite) TestSize() {
	tests := []struct {
		name     string
		capital  float64
		rate     float64
		fill     float64
		expected int64
	}{
		{name: "no commission", capital: 10_000_000, fill: 1000, expected: 10_000},
		{name: "commission reserved", capital: 10_000_000, rate: 0.001, fill: 1000, expected: 9990},
		{name: "price above cash", capital: 50, fill: 100, expected: 0},
		{name: "zero fill", capital: 1000, fill: 0, expected: 0},
		{name: "negative fill", capital: 1000, fill: -5, expected: 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			account := NewAccount(tc.capital, commission_fee.NewPercentageCommissionFee(tc.rate))
			suite.Equal(tc.expected, account.Size(tc.fill))
		})
	}
}

func (suite *AccountTestSuite) TestRoundTrip() {
	account := NewAccount(10_000_000, commission_fee.NewPercentageCommissionFee(0.001))

	shares := account.Size(1000)
	account.Buy(shares, 1000)

	suite.Equal(int64(9990), account.Shares())
	suite.InDelta(10.0, account.Cash(), 1e-9)
	suite.InDelta(9_990_000.0, account.StockValue(1000), 1e-9)
	suite.InDelta(9_990_010.0, account.TotalValue(1000), 1e-9)

	account.Sell(shares, 1100)

	suite.Zero(account.Shares())
	// 10 + 10,989,000 - 10,989
	suite.InDelta(10_978_021.0, account.Cash(), 1e-6)
	suite.InDelta(9990+10989.0, account.Fees(), 1e-9)
}

func (suite *AccountTestSuite) TestSellNeverGoesShort() {
	account := NewAccount(1000, commission_fee.NewZeroCommissionFee())

	account.Buy(5, 100)
	account.Sell(10, 100)

	suite.Zero(account.Shares())
	suite.InDelta(1000.0, account.Cash(), 1e-9)
	suite.Zero(account.Fees())
}

package models

import (
	"github.com/shopspring/decimal"
)

// SellTrade represents one BTC-for-fiat disposal.
type SellTrade struct {
	ID             string          `json:"id"`
	Date           Date            `json:"date"`
	SatsSold       Sats            `json:"satsSold"`
	BTCPrice       decimal.Decimal `json:"btcPrice"`
	USDReceived    decimal.Decimal `json:"usdReceived"`
	CostBasis      decimal.Decimal `json:"costBasis"` // fiat per whole BTC
	PremiumGain    decimal.Decimal `json:"premiumGain"`
	SentToFiatPool decimal.Decimal `json:"sentToFiatPool"`
	Notes          string          `json:"notes"`
}

// SellTradeInput is a candidate sell trade. Derived fields are computed by NewSellTrade.
type SellTradeInput struct {
	Date        Date
	SatsSold    Sats
	BTCPrice    decimal.Decimal
	USDReceived decimal.Decimal
	CostBasis   decimal.Decimal
	Notes       string
}

// ReinvestmentTrade represents one fiat-to-BTC repurchase.
//
// RemainingProfit is a snapshot of the fiat pool taken when the trade was
// recorded. It is not a running balance and is never recomputed; the
// authoritative pool is SummaryMetrics.RemainingFiatPool.
type ReinvestmentTrade struct {
	ID              string          `json:"id"`
	Date            Date            `json:"date"`
	ReinvestAmount  decimal.Decimal `json:"reinvestAmount"`
	BTCPrice        decimal.Decimal `json:"btcPrice"`
	SatsBought      Sats            `json:"satsBought"`
	FromProfitPool  bool            `json:"fromProfitPool"`
	RemainingProfit decimal.Decimal `json:"remainingProfit"`
	Notes           string          `json:"notes"`
}

// ReinvestmentInput is a candidate reinvestment trade.
type ReinvestmentInput struct {
	Date           Date
	ReinvestAmount decimal.Decimal
	BTCPrice       decimal.Decimal
	FromProfitPool bool
	Notes          string
}

// PremiumGain returns usdReceived - costBasis*sats/1e8. The result is exact.
func PremiumGain(usdReceived, costBasis decimal.Decimal, sats Sats) decimal.Decimal {
	return usdReceived.Sub(costBasis.Mul(sats.BTC()))
}

// FiatValue is what sats are worth at price: sats/1e8*price, exact.
func FiatValue(sats Sats, price decimal.Decimal) decimal.Decimal {
	return sats.BTC().Mul(price)
}

// SatsBought returns floor(amount/price*1e8). price must be positive and the
// result at most MaxSats; ValidateReinvestmentTrade enforces both.
func SatsBought(amount, price decimal.Decimal) Sats {
	return Sats(satsQuotient(amount, price).IntPart())
}

func satsQuotient(amount, price decimal.Decimal) decimal.Decimal {
	q, _ := amount.Shift(satsExp).QuoRem(price, 0)
	return q
}

// NewSellTrade builds a SellTrade from a validated input, harvesting the whole
// premium into the fiat pool.
func NewSellTrade(id string, in SellTradeInput) SellTrade {
	premium := PremiumGain(in.USDReceived, in.CostBasis, in.SatsSold)
	return SellTrade{
		ID:             id,
		Date:           in.Date,
		SatsSold:       in.SatsSold,
		BTCPrice:       in.BTCPrice,
		USDReceived:    in.USDReceived,
		CostBasis:      in.CostBasis,
		PremiumGain:    premium,
		SentToFiatPool: premium,
		Notes:          in.Notes,
	}
}

// NewReinvestmentTrade builds a ReinvestmentTrade from a validated input.
// poolBefore is the fiat pool balance before this trade is recorded.
func NewReinvestmentTrade(id string, in ReinvestmentInput, poolBefore decimal.Decimal) ReinvestmentTrade {
	remaining := poolBefore
	if in.FromProfitPool {
		remaining = poolBefore.Sub(in.ReinvestAmount)
	}
	return ReinvestmentTrade{
		ID:              id,
		Date:            in.Date,
		ReinvestAmount:  in.ReinvestAmount,
		BTCPrice:        in.BTCPrice,
		SatsBought:      SatsBought(in.ReinvestAmount, in.BTCPrice),
		FromProfitPool:  in.FromProfitPool,
		RemainingProfit: remaining,
		Notes:           in.Notes,
	}
}

// CheckPremium reports whether the stored premium matches its definition within tolerance.
func (t SellTrade) CheckPremium(tolerance decimal.Decimal) bool {
	want := PremiumGain(t.USDReceived, t.CostBasis, t.SatsSold)
	return t.PremiumGain.Sub(want).Abs().LessThanOrEqual(tolerance)
}


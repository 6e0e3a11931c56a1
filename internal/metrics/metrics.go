// Package metrics derives summary figures from the trade ledger.
package metrics

import (
	"github.com/shopspring/decimal"

	"harvest-ledger/internal/models"
)

// ComputeSummary aggregates every sell and reinvestment trade into a fresh
// SummaryMetrics. It only reads its inputs and is independent of their order.
func ComputeSummary(sells []models.SellTrade, reinvestments []models.ReinvestmentTrade) models.SummaryMetrics {
	m := models.SummaryMetrics{
		TotalFiatGained:    decimal.Zero,
		TotalPremiumProfit: decimal.Zero,
		ReinvestedFiat:     decimal.Zero,
	}

	for _, t := range sells {
		m.TotalSatsSold += t.SatsSold
		m.TotalFiatGained = m.TotalFiatGained.Add(t.USDReceived)
		m.TotalPremiumProfit = m.TotalPremiumProfit.Add(t.PremiumGain)
	}
	for _, t := range reinvestments {
		m.ReinvestedFiat = m.ReinvestedFiat.Add(t.ReinvestAmount)
		m.TotalSatsReinvested += t.SatsBought
	}

	// Global recomputation; may differ from any trade's RemainingProfit snapshot.
	m.RemainingFiatPool = m.TotalPremiumProfit.Sub(m.ReinvestedFiat)
	return m
}

// NetSats is sats bought back minus sats sold. Positive means the strategy
// has grown the stack.
func NetSats(m models.SummaryMetrics) models.Sats {
	return m.TotalSatsReinvested - m.TotalSatsSold
}

// PremiumPercentage returns how far btcPrice sits above costBasis as a
// fraction of costBasis. ok is false when costBasis is zero.
func PremiumPercentage(btcPrice, costBasis decimal.Decimal) (pct decimal.Decimal, ok bool) {
	if costBasis.IsZero() {
		return decimal.Zero, false
	}
	return btcPrice.Sub(costBasis).Div(costBasis), true
}

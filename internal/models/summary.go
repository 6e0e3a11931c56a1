package models

import "github.com/shopspring/decimal"

// SummaryMetrics is a derived snapshot of the whole ledger. It is always
// recomputed from scratch and never edited directly.
type SummaryMetrics struct {
	TotalSatsSold       Sats            `json:"totalSatsSold"`
	TotalFiatGained     decimal.Decimal `json:"totalFiatGained"`
	TotalPremiumProfit  decimal.Decimal `json:"totalPremiumProfit"`
	ReinvestedFiat      decimal.Decimal `json:"reinvestedFiat"`
	RemainingFiatPool   decimal.Decimal `json:"remainingFiatPool"`
	TotalSatsReinvested Sats            `json:"totalSatsReinvested"`
}

// Equal compares two snapshots field by field, ignoring decimal exponent differences.
func (m SummaryMetrics) Equal(o SummaryMetrics) bool {
	return m.TotalSatsSold == o.TotalSatsSold &&
		m.TotalSatsReinvested == o.TotalSatsReinvested &&
		m.TotalFiatGained.Equal(o.TotalFiatGained) &&
		m.TotalPremiumProfit.Equal(o.TotalPremiumProfit) &&
		m.ReinvestedFiat.Equal(o.ReinvestedFiat) &&
		m.RemainingFiatPool.Equal(o.RemainingFiatPool)
}

// IsZero reports whether every field is zero.
func (m SummaryMetrics) IsZero() bool {
	return m.Equal(SummaryMetrics{})
}

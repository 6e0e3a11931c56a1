package importer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"harvest-ledger/internal/models"
)

// DefaultCostBasisRatio places the provisional cost basis 5% below the
// contract rate.
var DefaultCostBasisRatio = decimal.RequireFromString("0.95")

// Normalizer turns settlement documents into ledger candidates.
type Normalizer struct {
	// CostBasisRatio multiplies the contract rate to produce a placeholder
	// cost basis. Settlement records carry no cost basis, so imported trades
	// must be corrected by hand.
	CostBasisRatio decimal.Decimal
}

// DefaultNormalizer returns a Normalizer using DefaultCostBasisRatio.
func DefaultNormalizer() Normalizer {
	return Normalizer{CostBasisRatio: DefaultCostBasisRatio}
}

func (n Normalizer) ratio() decimal.Decimal {
	if n.CostBasisRatio.IsZero() {
		return DefaultCostBasisRatio
	}
	return n.CostBasisRatio
}

// NormalizeSell maps a sell-side settlement into a sell candidate. ok is
// false when neither party sold, which callers treat as a skip, not a failure.
func (n Normalizer) NormalizeSell(doc Document) (in models.SellTradeInput, ok bool, err error) {
	seller := doc.seller()
	if seller == nil {
		return models.SellTradeInput{}, false, nil
	}

	executed, err := doc.ExecutedAt()
	if err != nil {
		return models.SellTradeInput{}, false, err
	}

	price := doc.Platform.ContractExchangeRate.Decimal
	ratio := n.ratio()
	return models.SellTradeInput{
		Date:        models.DateOf(executed),
		SatsSold:    models.Sats(seller.SentSats),
		BTCPrice:    price,
		USDReceived: seller.ReceivedFiat,
		CostBasis:   price.Mul(ratio),
		Notes:       provenance(doc, ratio),
	}, true, nil
}

// NormalizeReinvestment maps a buy-side settlement into a reinvestment
// candidate. It is separate from sell import: a purchase is never recorded
// unless the caller asks for it. ok is false when no party bought with fiat.
func (n Normalizer) NormalizeReinvestment(doc Document, fromPool bool) (in models.ReinvestmentInput, ok bool, err error) {
	buyer := doc.buyer()
	if buyer == nil || !buyer.SentFiat.IsPositive() {
		return models.ReinvestmentInput{}, false, nil
	}

	executed, err := doc.ExecutedAt()
	if err != nil {
		return models.ReinvestmentInput{}, false, err
	}

	return models.ReinvestmentInput{
		Date:           models.DateOf(executed),
		ReinvestAmount: buyer.SentFiat,
		BTCPrice:       doc.Platform.ContractExchangeRate.Decimal,
		FromProfitPool: fromPool,
		Notes:          fmt.Sprintf("Imported purchase #%s from %s", doc.OrderID, doc.Coordinator),
	}, true, nil
}

func provenance(doc Document, ratio decimal.Decimal) string {
	return fmt.Sprintf("Imported trade #%s from %s (provisional cost basis: %s%% of contract rate)",
		doc.OrderID, doc.Coordinator, ratio.Shift(2).String())
}

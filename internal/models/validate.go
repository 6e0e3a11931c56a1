package models

import (
	"github.com/shopspring/decimal"

	"harvest-ledger/internal/errors"
)

// ValidateSellTrade checks a candidate sell trade. A zero cost basis is
// allowed and treats the whole proceeds as premium.
func ValidateSellTrade(in SellTradeInput) error {
	if in.SatsSold <= 0 {
		return errors.NewValidationError("satsSold", in.SatsSold, "must be positive")
	}
	if in.SatsSold > MaxSats {
		return errors.NewValidationError("satsSold", in.SatsSold, "exceeds the 21M BTC supply")
	}
	if !in.BTCPrice.IsPositive() {
		return errors.NewValidationError("btcPrice", in.BTCPrice, "must be positive")
	}
	if !in.USDReceived.IsPositive() {
		return errors.NewValidationError("usdReceived", in.USDReceived, "must be positive")
	}
	if in.CostBasis.IsNegative() {
		return errors.NewValidationError("costBasis", in.CostBasis, "must not be negative")
	}
	return validateDate(in.Date)
}

// ValidateReinvestmentTrade checks a candidate reinvestment trade.
func ValidateReinvestmentTrade(in ReinvestmentInput) error {
	if !in.ReinvestAmount.IsPositive() {
		return errors.NewValidationError("reinvestAmount", in.ReinvestAmount, "must be positive")
	}
	if !in.BTCPrice.IsPositive() {
		return errors.NewValidationError("btcPrice", in.BTCPrice, "must be positive")
	}
	if satsQuotient(in.ReinvestAmount, in.BTCPrice).GreaterThan(decimal.NewFromInt(int64(MaxSats))) {
		return errors.NewValidationError("reinvestAmount", in.ReinvestAmount, "buys more than the 21M BTC supply at this price")
	}
	return validateDate(in.Date)
}

func validateDate(d Date) error {
	if d.IsZero() {
		return nil
	}
	if _, err := ParseDate(string(d)); err != nil {
		return errors.NewValidationError("date", d, "must be YYYY-MM-DD")
	}
	return nil
}

// ParseAmount parses a fiat amount or price from user input.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewValidationError(field, s, "not a number")
	}
	return d, nil
}

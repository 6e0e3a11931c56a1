// Package models provides domain models for the premium-harvesting ledger.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sats is a quantity of bitcoin in its smallest indivisible unit.
type Sats int64

// SatsPerBTC is the number of sats in one whole bitcoin.
const SatsPerBTC Sats = 100_000_000

// MaxSats is the total bitcoin supply cap. No single trade can move more.
const MaxSats Sats = 21_000_000 * SatsPerBTC

// satsExp is log10(SatsPerBTC), used to shift decimals between BTC and sats.
const satsExp = 8

// BTC returns the quantity as a decimal amount of whole bitcoin.
func (s Sats) BTC() decimal.Decimal {
	return decimal.New(int64(s), -satsExp)
}

// DateLayout is the calendar date layout used for every stored date.
const DateLayout = "2006-01-02"

// Date is a calendar date (YYYY-MM-DD) with no time component.
type Date string

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

func (d Date) String() string {
	return string(d)
}

// CentTolerance is the fiat tolerance used when checking stored derivations.
var CentTolerance = decimal.New(1, -2)

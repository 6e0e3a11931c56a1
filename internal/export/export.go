// Package export renders the ledger as JSON, YAML or CSV.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"harvest-ledger/internal/errors"
	"harvest-ledger/internal/models"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", errors.NewValidationError("format", s, "must be one of "+FormatNames())
}

// FormatNames lists the supported formats for help and error text.
func FormatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// SellRow is the exported form of a sell trade.
type SellRow struct {
	ID             string `json:"id" yaml:"id" csv:"id"`
	Date           string `json:"date" yaml:"date" csv:"date"`
	SatsSold       string `json:"satsSold" yaml:"satsSold" csv:"sats_sold"`
	BTCPrice       string `json:"btcPrice" yaml:"btcPrice" csv:"btc_price"`
	USDReceived    string `json:"usdReceived" yaml:"usdReceived" csv:"usd_received"`
	CostBasis      string `json:"costBasis" yaml:"costBasis" csv:"cost_basis"`
	PremiumGain    string `json:"premiumGain" yaml:"premiumGain" csv:"premium_gain"`
	SentToFiatPool string `json:"sentToFiatPool" yaml:"sentToFiatPool" csv:"sent_to_fiat_pool"`
	Notes          string `json:"notes" yaml:"notes" csv:"notes"`
}

// ReinvestmentRow is the exported form of a reinvestment trade.
type ReinvestmentRow struct {
	ID              string `json:"id" yaml:"id" csv:"id"`
	Date            string `json:"date" yaml:"date" csv:"date"`
	ReinvestAmount  string `json:"reinvestAmount" yaml:"reinvestAmount" csv:"reinvest_amount"`
	BTCPrice        string `json:"btcPrice" yaml:"btcPrice" csv:"btc_price"`
	SatsBought      string `json:"satsBought" yaml:"satsBought" csv:"sats_bought"`
	FromProfitPool  string `json:"fromProfitPool" yaml:"fromProfitPool" csv:"from_profit_pool"`
	RemainingProfit string `json:"remainingProfit" yaml:"remainingProfit" csv:"remaining_profit"`
	Notes           string `json:"notes" yaml:"notes" csv:"notes"`
}

// MetricRow is one summary figure.
type MetricRow struct {
	Metric string `json:"metric" yaml:"metric" csv:"metric"`
	Value  string `json:"value" yaml:"value" csv:"value"`
}

// Document is the JSON and YAML export layout.
type Document struct {
	SellTrades         []SellRow         `json:"sellTrades" yaml:"sellTrades"`
	ReinvestmentTrades []ReinvestmentRow `json:"reinvestmentTrades" yaml:"reinvestmentTrades"`
	Summary            map[string]string `json:"summary" yaml:"summary"`
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func sats(s models.Sats) string {
	return strconv.FormatInt(int64(s), 10)
}

// Sells converts sell trades to rows.
func Sells(trades []models.SellTrade) []SellRow {
	rows := make([]SellRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, SellRow{
			ID:             t.ID,
			Date:           t.Date.String(),
			SatsSold:       sats(t.SatsSold),
			BTCPrice:       t.BTCPrice.String(),
			USDReceived:    amount(t.USDReceived),
			CostBasis:      t.CostBasis.String(),
			PremiumGain:    amount(t.PremiumGain),
			SentToFiatPool: amount(t.SentToFiatPool),
			Notes:          t.Notes,
		})
	}
	return rows
}

// Reinvestments converts reinvestment trades to rows.
func Reinvestments(trades []models.ReinvestmentTrade) []ReinvestmentRow {
	rows := make([]ReinvestmentRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, ReinvestmentRow{
			ID:              t.ID,
			Date:            t.Date.String(),
			ReinvestAmount:  amount(t.ReinvestAmount),
			BTCPrice:        t.BTCPrice.String(),
			SatsBought:      sats(t.SatsBought),
			FromProfitPool:  strconv.FormatBool(t.FromProfitPool),
			RemainingProfit: amount(t.RemainingProfit),
			Notes:           t.Notes,
		})
	}
	return rows
}

// Metrics lists the summary figures in display order.
func Metrics(m models.SummaryMetrics) []MetricRow {
	return []MetricRow{
		{"totalSatsSold", sats(m.TotalSatsSold)},
		{"totalFiatGained", amount(m.TotalFiatGained)},
		{"totalPremiumProfit", amount(m.TotalPremiumProfit)},
		{"reinvestedFiat", amount(m.ReinvestedFiat)},
		{"remainingFiatPool", amount(m.RemainingFiatPool)},
		{"totalSatsReinvested", sats(m.TotalSatsReinvested)},
	}
}

// Write encodes the ledger to w in the given format.
func Write(w io.Writer, format Format, sells []models.SellTrade, reinvestments []models.ReinvestmentTrade, summary models.SummaryMetrics) error {
	switch format {
	case FormatJSON, FormatYAML:
		doc := Document{
			SellTrades:         Sells(sells),
			ReinvestmentTrades: Reinvestments(reinvestments),
			Summary:            make(map[string]string),
		}
		for _, r := range Metrics(summary) {
			doc.Summary[r.Metric] = r.Value
		}
		if format == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, sells, reinvestments, summary)
	default:
		return errors.NewValidationError("format", string(format), "unsupported")
	}
}

// writeCSV writes one titled section per table, separated by a blank line.
func writeCSV(w io.Writer, sells []models.SellTrade, reinvestments []models.ReinvestmentTrade, summary models.SummaryMetrics) error {
	sections := []struct {
		title string
		rows  interface{}
	}{
		{"sell_trades", Sells(sells)},
		{"reinvestment_trades", Reinvestments(reinvestments)},
		{"summary", Metrics(summary)},
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# %s\n", s.title); err != nil {
			return err
		}
		if err := gocsv.Marshal(s.rows, w); err != nil {
			return fmt.Errorf("encoding %s: %w", s.title, err)
		}
	}
	return nil
}

// Package importer maps peer-to-peer trade settlement records into ledger candidates.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"harvest-ledger/internal/errors"
)

// Document is a settlement record from a peer-to-peer trade coordinator.
// Unrecognised fields are ignored.
type Document struct {
	Coordinator string      `json:"coordinator"`
	OrderID     json.Number `json:"order_id"`
	Maker       *Party      `json:"maker"`
	Taker       *Party      `json:"taker"`
	Platform    *Platform   `json:"platform"`
}

// Party is one counterparty of the settlement.
type Party struct {
	IsBuyer      *bool           `json:"is_buyer"`
	SentSats     int64           `json:"sent_sats"`
	ReceivedSats int64           `json:"received_sats"`
	SentFiat     decimal.Decimal `json:"sent_fiat"`
	ReceivedFiat decimal.Decimal `json:"received_fiat"`
	TradeFeeSats int64           `json:"trade_fee_sats"`
}

// Platform holds the coordinator's view of the contract.
type Platform struct {
	ContractExchangeRate decimal.NullDecimal `json:"contract_exchange_rate"`
	ContractTimestamp    string              `json:"contract_timestamp"`
}

var partyNames = [2]string{"maker", "taker"}

// timestampLayouts are tried in order when reading contract_timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDocument decodes and checks a single settlement record.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, errors.NewImportError("", "invalid JSON", err)
	}
	if err := doc.check(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ParseBatch decodes either one settlement record or a JSON array of them.
func ParseBatch(data []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		doc, err := ParseDocument(trimmed)
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, errors.NewImportError("", "invalid JSON array", err)
	}
	docs := make([]Document, 0, len(raws))
	for i, raw := range raws {
		doc, err := ParseDocument(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (d Document) check() error {
	id := d.OrderID.String()
	if id == "" {
		return errors.NewImportError("", "missing order_id", nil)
	}
	if d.Coordinator == "" {
		return errors.NewImportError(id, "missing coordinator", nil)
	}
	if d.Maker == nil && d.Taker == nil {
		return errors.NewImportError(id, "missing maker and taker", nil)
	}
	for i, p := range []*Party{d.Maker, d.Taker} {
		if p != nil && p.IsBuyer == nil {
			return errors.NewImportError(id, fmt.Sprintf("%s.is_buyer missing", partyNames[i]), nil)
		}
	}
	if d.Platform == nil {
		return errors.NewImportError(id, "missing platform block", nil)
	}
	if !d.Platform.ContractExchangeRate.Valid {
		return errors.NewImportError(id, "missing platform.contract_exchange_rate", nil)
	}
	if _, err := d.ExecutedAt(); err != nil {
		return err
	}
	return nil
}

// ExecutedAt parses platform.contract_timestamp. Zone-less values are read as UTC.
func (d Document) ExecutedAt() (time.Time, error) {
	if d.Platform == nil || d.Platform.ContractTimestamp == "" {
		return time.Time{}, errors.NewImportError(d.OrderID.String(), "missing platform.contract_timestamp", nil)
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, d.Platform.ContractTimestamp)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, errors.NewImportError(d.OrderID.String(), "unparsable platform.contract_timestamp", lastErr)
}

// seller returns the first party, maker before taker, that is not the buyer.
func (d Document) seller() *Party {
	for _, p := range []*Party{d.Maker, d.Taker} {
		if p != nil && !*p.IsBuyer {
			return p
		}
	}
	return nil
}

// buyer returns the first party, maker before taker, that is the buyer.
func (d Document) buyer() *Party {
	for _, p := range []*Party{d.Maker, d.Taker} {
		if p != nil && *p.IsBuyer {
			return p
		}
	}
	return nil
}

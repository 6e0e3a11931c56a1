package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-ledger/internal/errors"
	"harvest-ledger/internal/importer"
	"harvest-ledger/internal/models"
	"harvest-ledger/internal/store"
)

var errDiskFull = fmt.Errorf("disk full")

// flakyKV wraps a KV and fails reads or writes on demand.
type flakyKV struct {
	store.KV
	failGet bool
	failSet bool
	sets    int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errDiskFull
	}
	return f.KV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	if f.failSet {
		return errDiskFull
	}
	return f.KV.Set(ctx, key, value)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%03d", n)
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
}

func newTestLedger(t *testing.T, kv store.KV, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs()), WithClock(fixedClock)}, opts...)
	l, err := Open(context.Background(), kv, opts...)
	require.NoError(t, err)
	return l
}

func premiumSale() models.SellTradeInput {
	return models.SellTradeInput{
		Date:        "2025-03-14",
		SatsSold:    500000,
		BTCPrice:    dec("88700"),
		USDReceived: dec("443.50"),
		CostBasis:   dec("84500"),
	}
}

func poolPurchase() models.ReinvestmentInput {
	return models.ReinvestmentInput{
		Date:           "2025-03-20",
		ReinvestAmount: dec("20.00"),
		BTCPrice:       dec("82300"),
		FromProfitPool: true,
	}
}

const sellSettlement = `{
	"coordinator": "Temple of Sats",
	"order_id": 48213,
	"maker": {"is_buyer": false, "sent_sats": 500000, "received_fiat": 443.5},
	"taker": {"is_buyer": true, "sent_fiat": 443.5, "received_sats": 499250},
	"platform": {"contract_exchange_rate": 88700, "contract_timestamp": "2025-03-14T23:41:07.512Z"}
}`

const buySettlement = `{
	"coordinator": "LibreBazaar",
	"order_id": 9001,
	"maker": {"is_buyer": true, "sent_fiat": 50, "received_sats": 60000},
	"taker": {"is_buyer": true, "sent_sats": 0},
	"platform": {"contract_exchange_rate": 82000, "contract_timestamp": "2025-04-02T10:00:00Z"}
}`

func TestAddSellTradeHarvestsPremium(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())

	trade, err := l.AddSellTrade(context.Background(), premiumSale())
	require.NoError(t, err)

	assert.Equal(t, "t001", trade.ID)
	assert.True(t, trade.PremiumGain.Equal(dec("21")), "premium %s", trade.PremiumGain)
	assert.True(t, trade.SentToFiatPool.Equal(dec("21")))

	summary := l.Summary()
	assert.Equal(t, models.Sats(500000), summary.TotalSatsSold)
	assert.True(t, summary.TotalFiatGained.Equal(dec("443.5")))
	assert.True(t, summary.RemainingFiatPool.Equal(dec("21")))
}

func TestAddReinvestmentTradeDrawsFromPool(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)
	trade, err := l.AddReinvestmentTrade(ctx, poolPurchase())
	require.NoError(t, err)

	assert.Equal(t, models.Sats(24301), trade.SatsBought)
	assert.True(t, trade.RemainingProfit.Equal(dec("1")), "remaining %s", trade.RemainingProfit)

	summary := l.Summary()
	assert.True(t, summary.RemainingFiatPool.Equal(dec("1")))
	assert.True(t, summary.ReinvestedFiat.Equal(dec("20")))
	assert.Equal(t, models.Sats(24301), summary.TotalSatsReinvested)
}

func TestExternalReinvestmentKeepsPoolSnapshot(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)

	in := poolPurchase()
	in.FromProfitPool = false
	trade, err := l.AddReinvestmentTrade(ctx, in)
	require.NoError(t, err)

	assert.True(t, trade.RemainingProfit.Equal(dec("21")))
	// The summary counts every reinvestment against the pool regardless of source.
	assert.True(t, l.Summary().RemainingFiatPool.Equal(dec("1")))
}

func TestClearAllDataResetsLedger(t *testing.T) {
	kv := store.NewMemoryStore()
	l := newTestLedger(t, kv)
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)
	_, err = l.AddReinvestmentTrade(ctx, poolPurchase())
	require.NoError(t, err)

	require.NoError(t, l.ClearAllData(ctx))
	assert.Empty(t, l.SellTrades())
	assert.Empty(t, l.ReinvestmentTrades())
	assert.True(t, l.Summary().IsZero())

	reopened := newTestLedger(t, kv)
	assert.Empty(t, reopened.SellTrades())
	assert.Empty(t, reopened.ReinvestmentTrades())
}

func TestImportTradeWithoutSellerIsSkipped(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)

	res, err := l.ImportTrade(context.Background(), []byte(buySettlement))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Nil(t, res.Trade)
	assert.Empty(t, l.SellTrades())
	assert.Empty(t, l.ReinvestmentTrades())
	assert.Zero(t, kv.sets)
}

func TestImportTradeRecordsSale(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())

	res, err := l.ImportTrade(context.Background(), []byte(sellSettlement))
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.NotNil(t, res.Trade)

	trade := *res.Trade
	assert.True(t, trade.CostBasis.Equal(dec("0.95").Mul(dec("88700"))), "cost basis %s", trade.CostBasis)
	assert.Contains(t, trade.Notes, "48213")
	assert.Contains(t, trade.Notes, "Temple of Sats")
	assert.Equal(t, models.Date("2025-03-14"), trade.Date)
	assert.Equal(t, []models.SellTrade{trade}, l.SellTrades())
}

func TestImportWithCustomNormalizer(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore(),
		WithNormalizer(importer.Normalizer{CostBasisRatio: dec("0.9")}))

	res, err := l.ImportTrade(context.Background(), []byte(sellSettlement))
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.True(t, res.Trade.CostBasis.Equal(dec("79830")))
}

func TestImportMalformedLeavesStateUntouched(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())

	_, err := l.ImportTrade(context.Background(), []byte(`{"order_id": 1}`))
	require.Error(t, err)
	assert.True(t, errors.IsImport(err))

	_, err = l.ImportTrade(context.Background(), []byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.IsImport(err))
	assert.Empty(t, l.SellTrades())
}

func TestImportRejectedCandidateIsImportError(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())

	// Taker sells but reports no sats, so the candidate fails validation.
	raw := `{
		"coordinator": "LibreBazaar",
		"order_id": 12,
		"taker": {"is_buyer": false, "received_fiat": 10},
		"platform": {"contract_exchange_rate": 80000, "contract_timestamp": "2025-02-01T00:00:00Z"}
	}`
	_, err := l.ImportTrade(context.Background(), []byte(raw))
	require.Error(t, err)
	assert.True(t, errors.IsImport(err))
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, l.SellTrades())
}

func TestValidationLeavesStateUntouched(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)
	ctx := context.Background()

	bad := premiumSale()
	bad.SatsSold = 0
	_, err := l.AddSellTrade(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	badR := poolPurchase()
	badR.BTCPrice = decimal.Zero
	_, err = l.AddReinvestmentTrade(ctx, badR)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, l.SellTrades())
	assert.Empty(t, l.ReinvestmentTrades())
	assert.Zero(t, kv.sets)
}

func TestEmptyDateDefaultsToToday(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())

	in := premiumSale()
	in.Date = ""
	trade, err := l.AddSellTrade(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.Date("2025-06-01"), trade.Date)
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)
	_, err = l.AddReinvestmentTrade(ctx, poolPurchase())
	require.NoError(t, err)

	sells, reinvestments, summary, sets := l.SellTrades(), l.ReinvestmentTrades(), l.Summary(), kv.sets

	require.NoError(t, l.RemoveSellTrade(ctx, "missing"))
	require.NoError(t, l.RemoveReinvestmentTrade(ctx, "missing"))

	assert.Equal(t, sells, l.SellTrades())
	assert.Equal(t, reinvestments, l.ReinvestmentTrades())
	assert.True(t, summary.Equal(l.Summary()))
	assert.Equal(t, sets, kv.sets)
}

func TestRemoveRecomputesSummaryButKeepsSnapshots(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	sell, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)
	first, err := l.AddReinvestmentTrade(ctx, models.ReinvestmentInput{
		ReinvestAmount: dec("5"), BTCPrice: dec("80000"), FromProfitPool: true,
	})
	require.NoError(t, err)
	second, err := l.AddReinvestmentTrade(ctx, models.ReinvestmentInput{
		ReinvestAmount: dec("6"), BTCPrice: dec("80000"), FromProfitPool: true,
	})
	require.NoError(t, err)
	assert.True(t, first.RemainingProfit.Equal(dec("16")))
	assert.True(t, second.RemainingProfit.Equal(dec("10")))

	require.NoError(t, l.RemoveReinvestmentTrade(ctx, first.ID))

	got, ok := l.ReinvestmentTrade(second.ID)
	require.True(t, ok)
	// The snapshot is historical; the pool is recomputed.
	assert.True(t, got.RemainingProfit.Equal(dec("10")))
	assert.True(t, l.Summary().RemainingFiatPool.Equal(dec("15")))

	require.NoError(t, l.RemoveSellTrade(ctx, sell.ID))
	_, ok = l.SellTrade(sell.ID)
	assert.False(t, ok)
	assert.True(t, l.Summary().RemainingFiatPool.Equal(dec("-6")))
}

func TestPersistRoundTrip(t *testing.T) {
	kv := store.NewMemoryStore()
	l := newTestLedger(t, kv)
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)
	_, err = l.AddReinvestmentTrade(ctx, poolPurchase())
	require.NoError(t, err)
	in := premiumSale()
	in.Notes = "second"
	in.CostBasis = decimal.Zero
	_, err = l.AddSellTrade(ctx, in)
	require.NoError(t, err)

	reopened := newTestLedger(t, kv)
	require.Len(t, reopened.SellTrades(), 2)
	require.Len(t, reopened.ReinvestmentTrades(), 1)

	for i, want := range l.SellTrades() {
		got := reopened.SellTrades()[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Notes, got.Notes)
		assert.Equal(t, want.SatsSold, got.SatsSold)
		assert.True(t, want.PremiumGain.Equal(got.PremiumGain))
		assert.True(t, want.CostBasis.Equal(got.CostBasis))
	}
	wantR, gotR := l.ReinvestmentTrades()[0], reopened.ReinvestmentTrades()[0]
	assert.Equal(t, wantR.ID, gotR.ID)
	assert.Equal(t, wantR.SatsBought, gotR.SatsBought)
	assert.True(t, wantR.RemainingProfit.Equal(gotR.RemainingProfit))
	assert.True(t, l.Summary().Equal(reopened.Summary()))
}

func TestPersistedLayoutUsesCamelCaseKeys(t *testing.T) {
	kv := store.NewMemoryStore()
	l := newTestLedger(t, kv, WithKey("custom-key"))
	ctx := context.Background()

	_, err := l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)

	raw, err := kv.Get(ctx, "custom-key")
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["sellTrades"], 1)
	assert.NotNil(t, doc["reinvestmentTrades"])
	for _, k := range []string{"id", "date", "satsSold", "btcPrice", "usdReceived", "costBasis", "premiumGain", "sentToFiatPool", "notes"} {
		assert.Contains(t, doc["sellTrades"][0], k)
	}

	_, err = kv.Get(ctx, "bitcoin-trade-tracker")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestOpenLoadsBrowserState(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	blob := `{"state":{
		"sellTrades":[{"id":"1700000000000","date":"2024-11-02","satsSold":500000,"btcPrice":88700,
			"usdReceived":443.5,"costBasis":84500,"premiumGain":21,"sentToFiatPool":21,"notes":""}],
		"reinvestmentTrades":[{"id":"1700000001000","date":"2024-11-05","reinvestAmount":20,"btcPrice":82300,
			"satsBought":24301,"fromProfitPool":true,"remainingProfit":1,"notes":"dip"}],
		"summaryMetrics":{"totalSatsSold":1}
	},"version":0}`
	require.NoError(t, kv.Set(ctx, "bitcoin-trade-tracker", []byte(blob)))

	l := newTestLedger(t, kv)
	require.Len(t, l.SellTrades(), 1)
	require.Len(t, l.ReinvestmentTrades(), 1)
	assert.Equal(t, "1700000000000", l.SellTrades()[0].ID)
	assert.Equal(t, "dip", l.ReinvestmentTrades()[0].Notes)

	// Stored summaries are ignored and recomputed.
	summary := l.Summary()
	assert.Equal(t, models.Sats(500000), summary.TotalSatsSold)
	assert.True(t, summary.RemainingFiatPool.Equal(dec("1")))
}

func TestOpenWithCorruptStateStartsEmpty(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "bitcoin-trade-tracker", []byte("{not json")))

	l, err := Open(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, l.SellTrades())
	assert.True(t, l.Summary().IsZero())
}

func TestCorruptStateIsBackedUpBeforeOverwrite(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	// The browser form stored parseFloat output, so fractional sats can appear.
	blob := []byte(`{"sellTrades":[{"id":"x","satsSold":1000.5}],"reinvestmentTrades":[]}`)
	require.NoError(t, kv.Set(ctx, "bitcoin-trade-tracker", blob))

	l, err := Open(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, l.SellTrades())

	_, err = l.AddSellTrade(ctx, premiumSale())
	require.NoError(t, err)

	backup, err := kv.Get(ctx, "bitcoin-trade-tracker.corrupt")
	require.NoError(t, err)
	assert.Equal(t, blob, backup)

	require.NoError(t, l.ClearAllData(ctx))
	_, err = kv.Get(ctx, "bitcoin-trade-tracker.corrupt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCorruptStateBackupFailureIsReported(t *testing.T) {
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(context.Background(), "bitcoin-trade-tracker", []byte("{not json")))
	kv := &flakyKV{KV: mem, failSet: true}

	l, err := Open(context.Background(), kv)
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	require.NotNil(t, l)
	assert.Empty(t, l.SellTrades())
}

func TestOpenWithUnreadableStoreReturnsUsableLedger(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore(), failGet: true}

	l, err := Open(context.Background(), kv)
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	require.NotNil(t, l)

	kv.failGet = false
	_, err = l.AddSellTrade(context.Background(), premiumSale())
	assert.NoError(t, err)
}

func TestPersistenceFailureKeepsMutation(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore(), failSet: true}
	l := newTestLedger(t, kv)
	ctx := context.Background()

	trade, err := l.AddSellTrade(ctx, premiumSale())
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.True(t, errors.Is(err, errDiskFull))

	var pe *errors.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "set", pe.Op)
	assert.Equal(t, "bitcoin-trade-tracker", pe.Key)

	assert.Equal(t, []models.SellTrade{trade}, l.SellTrades())
	assert.True(t, l.Summary().RemainingFiatPool.Equal(dec("21")))

	// Nothing reached the store, so a reload drops the unsaved trade.
	kv.failSet = false
	require.NoError(t, l.Reload(ctx))
	assert.Empty(t, l.SellTrades())
}

func TestImportBatch(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)

	raw := "[" + sellSettlement + "," + buySettlement + "]"
	res, err := l.ImportBatch(context.Background(), []byte(raw))
	require.NoError(t, err)

	require.Len(t, res.Imported, 1)
	assert.Equal(t, []string{"9001"}, res.SkippedOrders)
	assert.Len(t, l.SellTrades(), 1)
	assert.Equal(t, 1, kv.sets)
}

func TestImportBatchIsAllOrNothing(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)

	raw := "[" + sellSettlement + `,{"coordinator":"x","order_id":5}]`
	_, err := l.ImportBatch(context.Background(), []byte(raw))
	require.Error(t, err)
	assert.True(t, errors.IsImport(err))
	assert.Contains(t, err.Error(), "record 1")

	assert.Empty(t, l.SellTrades())
	assert.Zero(t, kv.sets)
}

func TestImportBatchOnlySkipsWritesNothing(t *testing.T) {
	kv := &flakyKV{KV: store.NewMemoryStore()}
	l := newTestLedger(t, kv)

	res, err := l.ImportBatch(context.Background(), []byte(buySettlement))
	require.NoError(t, err)
	assert.Empty(t, res.Imported)
	assert.Len(t, res.SkippedOrders, 1)
	assert.Zero(t, kv.sets)
}

func TestImportReinvestment(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())
	ctx := context.Background()

	res, err := l.ImportReinvestment(ctx, []byte(buySettlement), true)
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.True(t, res.Trade.ReinvestAmount.Equal(dec("50")))
	assert.Equal(t, models.Sats(60975), res.Trade.SatsBought)
	assert.True(t, res.Trade.FromProfitPool)
	assert.True(t, res.Trade.RemainingProfit.Equal(dec("-50")))
	assert.Empty(t, l.SellTrades())

	// A sale is not a purchase by the importing side.
	res, err = l.ImportReinvestment(ctx, []byte(`{
		"coordinator": "x", "order_id": 3,
		"maker": {"is_buyer": false, "sent_sats": 1000, "received_fiat": 1},
		"platform": {"contract_exchange_rate": 80000, "contract_timestamp": "2025-01-01"}
	}`), false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, l.ReinvestmentTrades(), 1)
}

func TestReadsReturnCopies(t *testing.T) {
	l := newTestLedger(t, store.NewMemoryStore())
	_, err := l.AddSellTrade(context.Background(), premiumSale())
	require.NoError(t, err)

	sells := l.SellTrades()
	sells[0].Notes = "mutated"
	assert.Empty(t, l.SellTrades()[0].Notes)
}

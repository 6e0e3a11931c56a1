// Package ledger holds the trade collections, keeps the summary in step with
// them, and persists the whole state to a key-value store after every change.
package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"harvest-ledger/internal/config"
	"harvest-ledger/internal/errors"
	"harvest-ledger/internal/id"
	"harvest-ledger/internal/importer"
	"harvest-ledger/internal/logging"
	"harvest-ledger/internal/metrics"
	"harvest-ledger/internal/models"
	"harvest-ledger/internal/store"
)

// Ledger is the single owner of ledger state. All methods are safe for
// concurrent use; each runs to completion before returning.
type Ledger struct {
	mu sync.RWMutex

	kv         store.KV
	key        string
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string
	normalizer importer.Normalizer

	sells         []models.SellTrade
	reinvestments []models.ReinvestmentTrade
	summary       models.SummaryMetrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithKey sets the storage key the state is persisted under.
func WithKey(key string) Option {
	return func(l *Ledger) {
		if key != "" {
			l.key = key
		}
	}
}

// WithClock sets the clock used to default empty trade dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator sets the trade id generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithNormalizer sets the settlement normalizer used by the import operations.
func WithNormalizer(n importer.Normalizer) Option {
	return func(l *Ledger) { l.normalizer = n }
}

// ImportResult is the outcome of importing one settlement document.
// Trade is nil when the document was skipped.
type ImportResult struct {
	Trade   *models.SellTrade
	Skipped bool
}

// ImportReinvestmentResult is the outcome of importing one purchase.
type ImportReinvestmentResult struct {
	Trade   *models.ReinvestmentTrade
	Skipped bool
}

// BatchResult is the outcome of ImportBatch.
type BatchResult struct {
	Imported []models.SellTrade
	// SkippedOrders lists the order ids that did not describe a sale.
	SkippedOrders []string
}

// Open creates a Ledger over kv and loads any persisted state. When the
// store cannot be read the returned Ledger is still usable (and empty) and
// the error is a *errors.PersistenceError.
func Open(ctx context.Context, kv store.KV, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		kv:         kv,
		key:        config.DefaultStorageKey,
		logger:     zerolog.Nop(),
		now:        time.Now,
		newID:      id.New,
		normalizer: importer.DefaultNormalizer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("component", "ledger").Str("key", l.key).Logger()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l, l.loadLocked(ctx)
}

// Reload discards in-memory state and reads it again from the store.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked(ctx)
}

func (l *Ledger) loadLocked(ctx context.Context) error {
	l.sells, l.reinvestments = nil, nil
	defer l.recomputeLocked()

	data, err := l.kv.Get(ctx, l.key)
	if errors.Is(err, store.ErrNotFound) {
		l.logger.Debug().Msg("No persisted state, starting empty")
		return nil
	}
	if err != nil {
		l.logger.Warn().Err(err).Msg("Failed to read persisted state, starting empty")
		return errors.NewPersistenceError("get", l.key, err)
	}

	s, err := decodeState(data)
	if err != nil {
		// The next write replaces the blob, so keep it where it can be recovered.
		l.logger.Warn().Err(err).Int("bytes", len(data)).Str("backup_key", l.backupKey()).
			Msg("Persisted state is corrupt, starting empty")
		if err := l.kv.Set(ctx, l.backupKey(), data); err != nil {
			return errors.NewPersistenceError("backup", l.backupKey(), err)
		}
		return nil
	}

	for _, t := range s.SellTrades {
		if !t.CheckPremium(models.CentTolerance) {
			l.logger.Warn().Str("trade_id", t.ID).Msg("Stored premium does not match trade figures")
		}
	}
	l.sells = s.SellTrades
	l.reinvestments = s.ReinvestmentTrades

	l.logger.Debug().
		Int("sell_trades", len(l.sells)).
		Int("reinvestment_trades", len(l.reinvestments)).
		Msg("Loaded ledger state")
	return nil
}

// backupKey holds the last blob that failed to decode.
func (l *Ledger) backupKey() string {
	return l.key + ".corrupt"
}

func (l *Ledger) recomputeLocked() {
	l.summary = metrics.ComputeSummary(l.sells, l.reinvestments)
}

// persistLocked writes the whole state under the key. A failure leaves the
// in-memory state as is.
func (l *Ledger) persistLocked(ctx context.Context) error {
	start := time.Now()
	data, err := encodeState(state{SellTrades: l.sells, ReinvestmentTrades: l.reinvestments})
	if err == nil {
		err = l.kv.Set(ctx, l.key, data)
	}
	logging.LogPersist(l.logger, l.key, len(data), time.Since(start), err)
	if err != nil {
		return errors.NewPersistenceError("set", l.key, err)
	}
	return nil
}

func (l *Ledger) today() models.Date {
	return models.Date(l.now().Format(models.DateLayout))
}

// SellTrades returns a copy of the sell trades in insertion order.
func (l *Ledger) SellTrades() []models.SellTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.sells)
}

// ReinvestmentTrades returns a copy of the reinvestment trades in insertion order.
func (l *Ledger) ReinvestmentTrades() []models.ReinvestmentTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.reinvestments)
}

// Summary returns the current aggregate metrics.
func (l *Ledger) Summary() models.SummaryMetrics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.summary
}

// SellTrade returns the sell trade with the given id.
func (l *Ledger) SellTrade(tradeID string) (models.SellTrade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := slices.IndexFunc(l.sells, func(t models.SellTrade) bool { return t.ID == tradeID })
	if i < 0 {
		return models.SellTrade{}, false
	}
	return l.sells[i], true
}

// ReinvestmentTrade returns the reinvestment trade with the given id.
func (l *Ledger) ReinvestmentTrade(tradeID string) (models.ReinvestmentTrade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := slices.IndexFunc(l.reinvestments, func(t models.ReinvestmentTrade) bool { return t.ID == tradeID })
	if i < 0 {
		return models.ReinvestmentTrade{}, false
	}
	return l.reinvestments[i], true
}

// AddSellTrade validates in, records the trade and persists. On a
// persistence failure the trade is still recorded and returned together
// with a *errors.PersistenceError.
func (l *Ledger) AddSellTrade(ctx context.Context, in models.SellTradeInput) (models.SellTrade, error) {
	if in.Date.IsZero() {
		in.Date = l.today()
	}
	if err := models.ValidateSellTrade(in); err != nil {
		return models.SellTrade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trade := l.appendSellLocked(in)
	l.recomputeLocked()
	return trade, l.persistLocked(ctx)
}

func (l *Ledger) appendSellLocked(in models.SellTradeInput) models.SellTrade {
	trade := models.NewSellTrade(l.newID(), in)
	l.sells = append(l.sells, trade)
	logging.LogSell(l.logger, trade.ID, int64(trade.SatsSold), trade.USDReceived.String(), trade.PremiumGain.String())
	return trade
}

// AddReinvestmentTrade validates in, records the trade and persists. The
// trade's RemainingProfit is the fiat pool before this trade, less the
// amount when it is drawn from the pool.
func (l *Ledger) AddReinvestmentTrade(ctx context.Context, in models.ReinvestmentInput) (models.ReinvestmentTrade, error) {
	if in.Date.IsZero() {
		in.Date = l.today()
	}
	if err := models.ValidateReinvestmentTrade(in); err != nil {
		return models.ReinvestmentTrade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	trade := models.NewReinvestmentTrade(l.newID(), in, l.summary.RemainingFiatPool)
	l.reinvestments = append(l.reinvestments, trade)
	logging.LogReinvestment(l.logger, trade.ID, trade.ReinvestAmount.String(), int64(trade.SatsBought), trade.FromProfitPool)

	l.recomputeLocked()
	return trade, l.persistLocked(ctx)
}

// RemoveSellTrade deletes the sell trade with the given id. An unknown id
// changes nothing and writes nothing.
func (l *Ledger) RemoveSellTrade(ctx context.Context, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.sells)
	l.sells = slices.DeleteFunc(l.sells, func(t models.SellTrade) bool { return t.ID == tradeID })
	found := len(l.sells) != n
	logging.LogRemoval(l.logger, "sell", tradeID, found)
	if !found {
		return nil
	}

	l.recomputeLocked()
	return l.persistLocked(ctx)
}

// RemoveReinvestmentTrade deletes the reinvestment trade with the given id.
// Snapshots on the remaining reinvestments are left as recorded.
func (l *Ledger) RemoveReinvestmentTrade(ctx context.Context, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.reinvestments)
	l.reinvestments = slices.DeleteFunc(l.reinvestments, func(t models.ReinvestmentTrade) bool { return t.ID == tradeID })
	found := len(l.reinvestments) != n
	logging.LogRemoval(l.logger, "reinvestment", tradeID, found)
	if !found {
		return nil
	}

	l.recomputeLocked()
	return l.persistLocked(ctx)
}

// ImportTrade records the sale described by one settlement document.
// Documents in which nobody sold are skipped without error.
func (l *Ledger) ImportTrade(ctx context.Context, raw []byte) (ImportResult, error) {
	doc, err := importer.ParseDocument(raw)
	if err != nil {
		return ImportResult{}, err
	}
	in, ok, err := l.sellCandidate(doc)
	if err != nil {
		return ImportResult{}, err
	}
	if !ok {
		l.logger.Info().Str("order_id", doc.OrderID.String()).Msg("Settlement has no seller, skipped")
		return ImportResult{Skipped: true}, nil
	}

	trade, err := l.AddSellTrade(ctx, in)
	return ImportResult{Trade: &trade}, err
}

// ImportBatch imports one document or a JSON array of documents. Every
// document is checked before anything is recorded, so a bad record leaves
// the ledger untouched. The state is persisted once.
func (l *Ledger) ImportBatch(ctx context.Context, raw []byte) (BatchResult, error) {
	docs, err := importer.ParseBatch(raw)
	if err != nil {
		return BatchResult{}, err
	}

	var (
		inputs  []models.SellTradeInput
		skipped []string
	)
	for i, doc := range docs {
		in, ok, err := l.sellCandidate(doc)
		if err != nil {
			return BatchResult{}, errors.Wrapf(err, "record %d", i)
		}
		if !ok {
			skipped = append(skipped, doc.OrderID.String())
			continue
		}
		inputs = append(inputs, in)
	}

	result := BatchResult{SkippedOrders: skipped}
	if len(inputs) == 0 {
		return result, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, in := range inputs {
		result.Imported = append(result.Imported, l.appendSellLocked(in))
	}
	l.recomputeLocked()
	l.logger.Info().Int("imported", len(inputs)).Int("skipped", len(skipped)).Msg("Batch imported")
	return result, l.persistLocked(ctx)
}

// ImportReinvestment records the purchase described by one settlement
// document. Documents in which nobody bought with fiat are skipped.
func (l *Ledger) ImportReinvestment(ctx context.Context, raw []byte, fromPool bool) (ImportReinvestmentResult, error) {
	doc, err := importer.ParseDocument(raw)
	if err != nil {
		return ImportReinvestmentResult{}, err
	}
	in, ok, err := l.normalizer.NormalizeReinvestment(doc, fromPool)
	if err != nil {
		return ImportReinvestmentResult{}, err
	}
	if !ok {
		l.logger.Info().Str("order_id", doc.OrderID.String()).Msg("Settlement has no fiat buyer, skipped")
		return ImportReinvestmentResult{Skipped: true}, nil
	}
	if err := models.ValidateReinvestmentTrade(in); err != nil {
		return ImportReinvestmentResult{}, errors.NewImportError(doc.OrderID.String(), "purchase rejected", err)
	}

	trade, err := l.AddReinvestmentTrade(ctx, in)
	return ImportReinvestmentResult{Trade: &trade}, err
}

// sellCandidate normalizes doc and validates the result, reporting a
// rejected candidate as an import failure.
func (l *Ledger) sellCandidate(doc importer.Document) (models.SellTradeInput, bool, error) {
	in, ok, err := l.normalizer.NormalizeSell(doc)
	if err != nil || !ok {
		return in, ok, err
	}
	if err := models.ValidateSellTrade(in); err != nil {
		return models.SellTradeInput{}, false, errors.NewImportError(doc.OrderID.String(), "sale rejected", err)
	}
	return in, true, nil
}

// ClearAllData empties both collections, persists the empty state and drops
// any backup of a corrupt blob.
func (l *Ledger) ClearAllData(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Info().
		Int("sell_trades", len(l.sells)).
		Int("reinvestment_trades", len(l.reinvestments)).
		Msg("Clearing all ledger data")
	l.sells, l.reinvestments = nil, nil
	l.recomputeLocked()
	if err := l.persistLocked(ctx); err != nil {
		return err
	}
	if err := l.kv.Delete(ctx, l.backupKey()); err != nil {
		return errors.NewPersistenceError("delete", l.backupKey(), err)
	}
	return nil
}

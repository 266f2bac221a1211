package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rickgao/insider-trades/internal/dedup"
	"github.com/rickgao/insider-trades/internal/metrics"
	"github.com/rickgao/insider-trades/internal/model"
)

// ErrFeed marks a batch aborted because the disclosure feed could not be read.
var ErrFeed = errors.New("disclosure feed unavailable")

// Error categories written to the error log.
const (
	CategoryTradeInsert   = "trade_insert"
	CategoryInvalidRecord = "invalid_record"
	CategoryPriceFetch    = "price_fetch"
	CategoryPriceInsert   = "price_insert"
	CategoryOptionsFetch  = "options_fetch"
	CategoryOptionsInsert = "options_insert"
	CategoryPanic         = "panic"
)

// DisclosureSource returns one page of disclosure records in feed order.
type DisclosureSource interface {
	Latest(ctx context.Context, page, limit int) ([]model.TransactionRecord, error)
}

// PriceFetcher returns daily bars for symbol between start and end inclusive.
type PriceFetcher interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
}

// OptionsFetcher returns an options chain snapshot.
type OptionsFetcher interface {
	Chain(ctx context.Context, symbol string, snapshot, from, to time.Time) ([]model.OptionQuote, error)
}

// State is the phase of the batch in progress.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StatePerRecordLoop
	StateSummarizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePerRecordLoop:
		return "per_record_loop"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config holds batch settings.
type Config struct {
	Page         int // feed page
	Limit        int // feed page size
	LookbackDays int // price window lookback
	HorizonDays  int // options expiration horizon
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Page:         0,
		Limit:        10,
		LookbackDays: 60,
		HorizonDays:  60,
	}
}

// Runner executes batches.
type Runner struct {
	cfg     Config
	feed    DisclosureSource
	prices  PriceFetcher
	options OptionsFetcher // nil disables options enrichment
	store   *dedup.Store
	logger  *slog.Logger
	summary io.Writer
	now     func() time.Time

	state atomic.Int32
}

// Option configures a Runner.
type Option func(*Runner)

// WithOptions enables options enrichment.
func WithOptions(f OptionsFetcher) Option {
	return func(r *Runner) {
		r.options = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSummaryWriter sets where the batch summary is printed. Defaults to stdout.
func WithSummaryWriter(w io.Writer) Option {
	return func(r *Runner) {
		r.summary = w
	}
}

// WithClock sets the time source of the metrics ledger.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner.
func New(cfg Config, feed DisclosureSource, prices PriceFetcher, store *dedup.Store, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		feed:    feed,
		prices:  prices,
		store:   store,
		logger:  slog.Default(),
		summary: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.summary == nil {
		r.summary = io.Discard
	}
	return r
}

// State returns the phase of the batch in progress.
func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug("batch state", "state", s)
}

// Run executes one batch and returns its completed ledger. The error is
// non-nil when the batch was aborted: ErrFeed when the feed could not be
// read, or a store error when the batch transaction failed. Per-record
// failures are reported through the ledger, not the error.
func (r *Runner) Run(ctx context.Context) (metrics.Snapshot, error) {
	batch := metrics.New(metrics.WithClock(r.now))
	logger := r.logger.With("batch_id", batch.ID())
	defer r.setState(StateDone)

	logger.Info("batch started", "page", r.cfg.Page, "limit", r.cfg.Limit)

	r.setState(StateFetching)
	records, err := metrics.Measure(batch, metrics.FetchTrades, func() ([]model.TransactionRecord, error) {
		return r.feed.Latest(ctx, r.cfg.Page, r.cfg.Limit)
	})
	if err != nil {
		batch.Complete(false)
		snap := batch.Snapshot()
		logger.Error("disclosure feed fetch failed", "error", err, "batch", snap)
		r.printSummary(snap)
		return snap, fmt.Errorf("%w: %w", ErrFeed, err)
	}
	logger.Info("disclosures fetched", "count", len(records))

	var snap metrics.Snapshot
	err = r.store.WithBatch(ctx, func(sess *dedup.Session) error {
		r.setState(StatePerRecordLoop)
		for i := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.processRecord(ctx, sess, batch, &records[i]); err != nil {
				return err
			}
		}

		r.setState(StateSummarizing)
		batch.Complete(batch.ErrorCount() == 0)
		snap = batch.Snapshot()
		return sess.RecordBatch(ctx, snap)
	})
	if err != nil {
		batch.Complete(false)
		snap = batch.Snapshot()
		logger.Error("batch aborted", "error", err, "batch", snap)
		r.printSummary(snap)
		return snap, fmt.Errorf("run batch: %w", err)
	}

	logger.Info("batch complete", "batch", snap)
	r.printSummary(snap)
	return snap, nil
}

func (r *Runner) printSummary(snap metrics.Snapshot) {
	fmt.Fprint(r.summary, snap.Summary())
}

// processRecord runs one record through insert and enrichment. The returned
// error is fatal to the batch; everything else is logged and counted.
func (r *Runner) processRecord(ctx context.Context, sess *dedup.Session, batch *metrics.Batch, rec *model.TransactionRecord) (err error) {
	batch.RecordVisited()

	symbol := rec.Ticker()
	hash := rec.Hash()
	logger := r.logger.With("batch_id", batch.ID(), "symbol", symbol, "hash", hash)

	fail := func(category string, cause error, stack []byte) error {
		return r.recordFailure(ctx, sess, batch, logger, rec, category, cause, stack)
	}

	defer func() {
		if p := recover(); p != nil {
			err = fail(CategoryPanic, fmt.Errorf("panic: %v", p), debug.Stack())
		}
	}()

	if symbol == "" {
		return fail(CategoryInvalidRecord, errors.New("record has no symbol"), nil)
	}

	var inserted bool
	err = batch.Time(metrics.DBOperation, func() error {
		var err error
		inserted, err = sess.InsertTrade(ctx, rec, batch.ID())
		return err
	})
	if err != nil {
		return fail(CategoryTradeInsert, err, nil)
	}
	if !inserted {
		batch.AddDuplicate()
		logger.Debug("duplicate trade, enrichment skipped")
		return nil
	}

	outcome := metrics.Outcome{Inserted: true}
	defer func() {
		batch.AddTickerProcessed(outcome)
	}()

	window, err := PriceWindow(rec, r.cfg.LookbackDays)
	if err != nil {
		return fail(CategoryInvalidRecord, err, nil)
	}

	bars, err := metrics.Measure(batch, metrics.FetchPrice, func() ([]model.PriceBar, error) {
		return r.prices.History(ctx, symbol, window.Start, window.End)
	})
	if err != nil {
		// No options attempt without prices.
		return fail(CategoryPriceFetch, err, nil)
	}

	if len(bars) > 0 {
		var res dedup.EnrichmentResult
		err := batch.Time(metrics.DBOperation, func() error {
			var err error
			res, err = sess.InsertPriceSeries(ctx, hash, symbol, bars)
			return err
		})
		if err != nil {
			if err := fail(CategoryPriceInsert, err, nil); err != nil {
				return err
			}
		} else {
			rec.PriceSeries = bars
			batch.AddPricingRows(res.Rows)
			outcome.HadPricing = true
			logger.Debug("price series stored", "bars", len(bars), "rows", res.Rows)
		}
	}

	if r.options == nil {
		return nil
	}

	snapshot, expirations, err := OptionsWindow(rec, r.cfg.HorizonDays)
	if err != nil {
		return fail(CategoryInvalidRecord, err, nil)
	}

	quotes, err := metrics.Measure(batch, metrics.FetchOptions, func() ([]model.OptionQuote, error) {
		return r.options.Chain(ctx, symbol, snapshot, expirations.Start, expirations.End)
	})
	if err != nil {
		return fail(CategoryOptionsFetch, err, nil)
	}
	if len(quotes) == 0 {
		return nil
	}

	var res dedup.EnrichmentResult
	err = batch.Time(metrics.DBOperation, func() error {
		var err error
		res, err = sess.InsertOptionsChain(ctx, hash, symbol, quotes)
		return err
	})
	if err != nil {
		return fail(CategoryOptionsInsert, err, nil)
	}

	rec.OptionsChain = quotes
	batch.AddOptionsRows(res.Rows)
	outcome.HadOptions = true
	logger.Debug("options chain stored", "quotes", len(quotes), "rows", res.Rows)
	return nil
}

// recordFailure counts and logs a per-record failure. It returns an error only
// when the error log itself cannot be written.
func (r *Runner) recordFailure(ctx context.Context, sess *dedup.Session, batch *metrics.Batch, logger *slog.Logger, rec *model.TransactionRecord, category string, cause error, stack []byte) error {
	batch.IncrementError()
	logger.Warn("record failed", "category", category, "error", cause)

	entry := model.ErrorRecord{
		BatchID:    batch.ID(),
		Category:   category,
		Message:    cause.Error(),
		Context:    errorContext(rec),
		StackTrace: string(stack),
	}

	err := batch.Time(metrics.DBOperation, func() error {
		return sess.LogError(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("write %s error for %s: %w", category, rec.Ticker(), err)
	}
	return nil
}

func errorContext(rec *model.TransactionRecord) map[string]any {
	return map[string]any{
		"symbol": rec.Ticker(),
		"hash":   rec.Hash(),
		"record": rec,
	}
}

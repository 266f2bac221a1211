package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/insider-trades/internal/metrics"
	"github.com/rickgao/insider-trades/internal/model"
)

// ErrSessionClosed is returned by Session methods after Commit or Rollback.
var ErrSessionClosed = errors.New("dedup: session closed")

// EnrichmentResult is the outcome of a once-only enrichment insert.
type EnrichmentResult struct {
	Inserted bool // false when the hash was already enriched
	Rows     int  // rows actually written
}

// Store is the deduplicating store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  *registry
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the time source for first_seen_at, last_seen_at and log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over db. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		tables:  newRegistry(dialect),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Tables returns every table in foreign-key order.
func (s *Store) Tables() []Table {
	return append([]Table(nil), s.tables.ordered...)
}

// Table returns the table registered under name.
func (s *Store) Table(name string) (Table, bool) {
	return s.tables.Get(name)
}

// Begin opens a batch session.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch transaction: %w", err)
	}
	return &Session{tx: tx, store: s}, nil
}

// WithBatch runs fn inside one batch session. The session commits when fn
// returns nil and rolls back when fn returns an error or panics.
func (s *Store) WithBatch(ctx context.Context, fn func(*Session) error) (err error) {
	sess, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := sess.Rollback(); rbErr != nil {
				s.logger.Error("rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(sess); err != nil {
		if rbErr := sess.Rollback(); rbErr != nil {
			s.logger.Error("batch rollback failed", "error", rbErr)
		}
		return err
	}

	return sess.Commit()
}

// Session is one batch's transaction. It is not safe for concurrent use.
type Session struct {
	tx     *sql.Tx
	store  *Store
	seq    int
	closed bool
}

// Commit commits the batch.
func (s *Session) Commit() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch.
func (s *Session) Rollback() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}

// savepoint runs fn inside a savepoint. On error or panic only fn's writes are
// undone and the transaction stays usable.
func (s *Session) savepoint(ctx context.Context, fn func(tx DBTX) error) (err error) {
	if s.closed {
		return ErrSessionClosed
	}

	s.seq++
	name := fmt.Sprintf("sp_%d", s.seq)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	// Undo must run even when ctx is what failed.
	undoCtx := context.WithoutCancel(ctx)
	undo := func() error {
		if _, err := s.tx.ExecContext(undoCtx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return fmt.Errorf("rollback to savepoint: %w", err)
		}
		if _, err := s.tx.ExecContext(undoCtx, "RELEASE SAVEPOINT "+name); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			_ = undo()
			panic(p)
		}
	}()

	if err := fn(s.store.bind(s.tx)); err != nil {
		if undoErr := undo(); undoErr != nil {
			return errors.Join(err, undoErr)
		}
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// InsertTrade stores rec if its content hash is new and reports whether it was
// inserted. A known hash only has last_seen_at and batch_id updated.
func (s *Session) InsertTrade(ctx context.Context, rec *model.TransactionRecord, batchID uuid.UUID) (inserted bool, err error) {
	if rec == nil {
		return false, errors.New("insert trade: nil record")
	}
	hash := rec.Hash()

	err = s.savepoint(ctx, func(tx DBTX) error {
		inserted, err = s.store.tables.trades.Upsert(ctx, tx, hash, rec, batchID, s.store.now().UTC())
		return err
	})
	return inserted, err
}

// InsertPriceSeries stores bars for hash unless price rows already exist for
// it. Rows whose (hash, date) is already stored are skipped.
func (s *Session) InsertPriceSeries(ctx context.Context, hash, ticker string, bars []model.PriceBar) (EnrichmentResult, error) {
	var res EnrichmentResult
	err := s.savepoint(ctx, func(tx DBTX) error {
		exists, err := s.store.tables.prices.Exists(ctx, tx, hash)
		if err != nil || exists {
			return err
		}
		res.Rows, err = s.store.tables.prices.Insert(ctx, tx, hash, ticker, bars)
		res.Inserted = err == nil
		return err
	})
	if err != nil {
		return EnrichmentResult{}, err
	}
	return res, nil
}

// InsertOptionsChain stores quotes for hash unless option rows already exist
// for it. Rows whose (hash, option_symbol) is already stored are skipped.
func (s *Session) InsertOptionsChain(ctx context.Context, hash, ticker string, quotes []model.OptionQuote) (EnrichmentResult, error) {
	var res EnrichmentResult
	err := s.savepoint(ctx, func(tx DBTX) error {
		exists, err := s.store.tables.options.Exists(ctx, tx, hash)
		if err != nil || exists {
			return err
		}
		res.Rows, err = s.store.tables.options.Insert(ctx, tx, hash, ticker, quotes)
		res.Inserted = err == nil
		return err
	})
	if err != nil {
		return EnrichmentResult{}, err
	}
	return res, nil
}

// LogError appends rec to the error log. Callers treat a failure here as fatal.
func (s *Session) LogError(ctx context.Context, rec model.ErrorRecord) error {
	return s.savepoint(ctx, func(tx DBTX) error {
		return s.store.tables.errors.Append(ctx, tx, rec, s.store.now().UTC())
	})
}

// RecordBatch persists the batch metrics row.
func (s *Session) RecordBatch(ctx context.Context, snap metrics.Snapshot) error {
	return s.savepoint(ctx, func(tx DBTX) error {
		return s.store.tables.batches.Insert(ctx, tx, snap, s.store.now().UTC())
	})
}

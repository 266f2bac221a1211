package metrics

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bucket names a cumulative timing bucket.
type Bucket string

// Timing buckets. Names match the batch_metrics columns.
const (
	FetchTrades  Bucket = "time_to_fetch_trades"
	FetchPrice   Bucket = "time_to_fetch_price"
	FetchOptions Bucket = "time_to_fetch_options"
	DBOperation  Bucket = "db_operation_time_seconds"
)

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Counts holds the monotonic counters of a batch.
type Counts struct {
	Processed          int // feed records visited by the loop
	Inserted           int // new trade rows
	Skipped            int // records not enriched because their hash was already stored
	Duplicates         int // duplicate hashes seen
	PricingRows        int // price_observations rows written
	OptionsRows        int // option_quotes rows written
	TickersWithPricing int
	TickersWithOptions int
	Errors             int
}

// Outcome is the per-ticker result recorded after a trade row is written.
type Outcome struct {
	Inserted   bool
	HadPricing bool
	HadOptions bool
}

// Batch is the metrics ledger for one pipeline run.
type Batch struct {
	mu  sync.Mutex
	now func() time.Time

	id        uuid.UUID
	startedAt time.Time
	endedAt   time.Time
	status    Status
	exitCode  int
	completed bool

	counts  Counts
	timings map[Bucket]time.Duration
}

// Option configures a Batch.
type Option func(*Batch)

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Batch) {
		b.now = now
	}
}

// WithID sets the batch id instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(b *Batch) {
		b.id = id
	}
}

// New starts a new batch ledger.
func New(opts ...Option) *Batch {
	b := &Batch{
		now:     time.Now,
		status:  StatusRunning,
		timings: make(map[Bucket]time.Duration, 4),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.id == uuid.Nil {
		b.id = uuid.New()
	}
	b.startedAt = b.now()
	return b
}

// ID returns the batch id.
func (b *Batch) ID() uuid.UUID {
	return b.id
}

// Time runs fn and adds its wall-clock duration to bucket, whether fn
// returns an error or panics.
func (b *Batch) Time(bucket Bucket, fn func() error) error {
	start := b.now()
	defer func() {
		b.AddDuration(bucket, b.now().Sub(start))
	}()
	return fn()
}

// Measure is Time for operations that return a value.
func Measure[T any](b *Batch, bucket Bucket, fn func() (T, error)) (T, error) {
	var result T
	err := b.Time(bucket, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// AddDuration adds d to bucket.
func (b *Batch) AddDuration(bucket Bucket, d time.Duration) {
	b.mutate(func() {
		b.timings[bucket] += d
	})
}

// RecordVisited counts one feed record entering the loop.
func (b *Batch) RecordVisited() {
	b.mutate(func() {
		b.counts.Processed++
	})
}

// AddDuplicate counts a record whose hash was already stored.
func (b *Batch) AddDuplicate() {
	b.mutate(func() {
		b.counts.Duplicates++
		b.counts.Skipped++
	})
}

// AddTickerProcessed records the outcome of one newly seen ticker.
func (b *Batch) AddTickerProcessed(o Outcome) {
	b.mutate(func() {
		if o.Inserted {
			b.counts.Inserted++
		}
		if o.HadPricing {
			b.counts.TickersWithPricing++
		}
		if o.HadOptions {
			b.counts.TickersWithOptions++
		}
	})
}

// AddPricingRows adds n written price rows.
func (b *Batch) AddPricingRows(n int) {
	b.mutate(func() {
		b.counts.PricingRows += n
	})
}

// AddOptionsRows adds n written option rows.
func (b *Batch) AddOptionsRows(n int) {
	b.mutate(func() {
		b.counts.OptionsRows += n
	})
}

// IncrementError counts one per-record failure.
func (b *Batch) IncrementError() {
	b.mutate(func() {
		b.counts.Errors++
	})
}

// ErrorCount returns the current error count.
func (b *Batch) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts.Errors
}

// Complete freezes the ledger. Later calls, and any further mutation, are ignored.
func (b *Batch) Complete(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.completed {
		return
	}
	b.completed = true
	b.endedAt = b.now()
	if success {
		b.status = StatusSuccess
		b.exitCode = 0
	} else {
		b.status = StatusFailed
		b.exitCode = 1
	}
}

// Completed reports whether Complete has been called.
func (b *Batch) Completed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

func (b *Batch) mutate(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completed {
		return
	}
	fn()
}

// Snapshot returns a copy of the ledger.
func (b *Batch) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		BatchID:            b.id,
		StartedAt:          b.startedAt,
		EndedAt:            b.endedAt,
		Status:             b.status,
		ExitCode:           b.exitCode,
		Counts:             b.counts,
		TimeToFetchTrades:  b.timings[FetchTrades],
		TimeToFetchPrice:   b.timings[FetchPrice],
		TimeToFetchOptions: b.timings[FetchOptions],
		DBOperationTime:    b.timings[DBOperation],
	}
}

// Snapshot is an immutable view of a Batch.
type Snapshot struct {
	BatchID   uuid.UUID
	StartedAt time.Time
	EndedAt   time.Time // zero until Complete
	Status    Status
	ExitCode  int
	Counts

	TimeToFetchTrades  time.Duration
	TimeToFetchPrice   time.Duration
	TimeToFetchOptions time.Duration
	DBOperationTime    time.Duration
}

// APICallTime is the sum of the three fetch buckets.
func (s Snapshot) APICallTime() time.Duration {
	return s.TimeToFetchTrades + s.TimeToFetchPrice + s.TimeToFetchOptions
}

// ExecutionTime is EndedAt minus StartedAt, or zero for a running batch.
func (s Snapshot) ExecutionTime() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("batch_id", s.BatchID.String()),
		slog.String("status", string(s.Status)),
		slog.Int("exit_code", s.ExitCode),
		slog.Int("processed", s.Processed),
		slog.Int("inserted", s.Inserted),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("pricing_rows", s.PricingRows),
		slog.Int("options_rows", s.OptionsRows),
		slog.Int("errors", s.Errors),
		slog.Duration("execution_time", s.ExecutionTime()),
		slog.Duration("api_time", s.APICallTime()),
		slog.Duration("db_time", s.DBOperationTime),
	)
}

// Summary renders the human-readable batch summary.
func (s Snapshot) Summary() string {
	id := s.BatchID.String()[:8]
	rule := strings.Repeat("=", 60)

	var sb strings.Builder
	fmt.Fprintln(&sb, rule)
	fmt.Fprintf(&sb, "Batch Summary (%s):\n", id)
	fmt.Fprintf(&sb, "  Total processed: %d\n", s.Processed)
	fmt.Fprintf(&sb, "  New records: %d\n", s.Inserted)
	fmt.Fprintf(&sb, "  Duplicates: %d\n", s.Duplicates)
	fmt.Fprintf(&sb, "  Pricing rows: %d (%d tickers)\n", s.PricingRows, s.TickersWithPricing)
	fmt.Fprintf(&sb, "  Options rows: %d (%d tickers)\n", s.OptionsRows, s.TickersWithOptions)
	fmt.Fprintf(&sb, "  Errors: %d\n", s.Errors)
	fmt.Fprintf(&sb, "  Execution time: %.2fs\n", s.ExecutionTime().Seconds())
	fmt.Fprintf(&sb, "    - API: %.2fs\n", s.APICallTime().Seconds())
	fmt.Fprintf(&sb, "    - DB: %.2fs\n", s.DBOperationTime.Seconds())
	fmt.Fprintf(&sb, "  Status: %s\n", s.Status)
	fmt.Fprint(&sb, rule)
	return sb.String()
}

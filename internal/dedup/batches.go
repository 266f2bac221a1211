package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/insider-trades/internal/metrics"
)

const batchesTableName = "batch_metrics"

// batchesTable stores one metrics row per pipeline run.
type batchesTable struct {
	d Dialect
}

func (t *batchesTable) Name() string { return batchesTableName }

func (t *batchesTable) EnsureSchema(ctx context.Context, db DBTX) error {
	return execAll(ctx, db,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS batch_metrics (
				id %[1]s,
				batch_id %[2]s NOT NULL UNIQUE,
				started_at %[3]s NOT NULL,
				ended_at %[3]s,
				status VARCHAR(10) NOT NULL,
				exit_code INTEGER NOT NULL,
				total_records_processed INTEGER NOT NULL,
				records_inserted INTEGER NOT NULL,
				records_skipped INTEGER NOT NULL,
				duplicated_trades INTEGER NOT NULL,
				pricing_records_inserted INTEGER NOT NULL,
				options_records_inserted INTEGER NOT NULL,
				tickers_with_pricing INTEGER NOT NULL,
				tickers_with_options INTEGER NOT NULL,
				error_count INTEGER NOT NULL,
				execution_time_seconds %[4]s,
				db_operation_time_seconds %[4]s,
				api_call_time_seconds %[4]s,
				time_to_fetch_trades %[4]s,
				time_to_fetch_price %[4]s,
				time_to_fetch_options %[4]s,
				log_timestamp %[3]s NOT NULL
			)`, t.d.Serial, t.d.UUID, t.d.Timestamp, t.d.Float),
	)
}

func (t *batchesTable) DropSchema(ctx context.Context, db DBTX) error {
	return dropTable(ctx, db, batchesTableName)
}

// Insert writes the metrics row for s.
func (t *batchesTable) Insert(ctx context.Context, db DBTX, s metrics.Snapshot, loggedAt time.Time) error {
	var endedAt *time.Time
	if !s.EndedAt.IsZero() {
		endedAt = &s.EndedAt
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO batch_metrics (
			batch_id, started_at, ended_at, status, exit_code,
			total_records_processed, records_inserted, records_skipped, duplicated_trades,
			pricing_records_inserted, options_records_inserted, tickers_with_pricing, tickers_with_options,
			error_count, execution_time_seconds, db_operation_time_seconds, api_call_time_seconds,
			time_to_fetch_trades, time_to_fetch_price, time_to_fetch_options, log_timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		s.BatchID, s.StartedAt, endedAt, string(s.Status), s.ExitCode,
		s.Processed, s.Inserted, s.Skipped, s.Duplicates,
		s.PricingRows, s.OptionsRows, s.TickersWithPricing, s.TickersWithOptions,
		s.Errors, s.ExecutionTime().Seconds(), s.DBOperationTime.Seconds(), s.APICallTime().Seconds(),
		s.TimeToFetchTrades.Seconds(), s.TimeToFetchPrice.Seconds(), s.TimeToFetchOptions.Seconds(), loggedAt,
	); err != nil {
		return fmt.Errorf("insert batch metrics: %w", err)
	}
	return nil
}

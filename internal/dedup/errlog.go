package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/insider-trades/internal/model"
)

const errorsTableName = "errors"

// errorsTable is the append-only failure log.
type errorsTable struct {
	d Dialect
}

func (t *errorsTable) Name() string { return errorsTableName }

func (t *errorsTable) EnsureSchema(ctx context.Context, db DBTX) error {
	return execAll(ctx, db,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS errors (
				id %s,
				batch_id %s,
				occurred_at %s NOT NULL,
				category VARCHAR(100) NOT NULL,
				message TEXT,
				context %s,
				stack_trace TEXT
			)`, t.d.Serial, t.d.UUID, t.d.Timestamp, t.d.JSON),
		`CREATE INDEX IF NOT EXISTS idx_errors_batch_id ON errors (batch_id)`,
	)
}

func (t *errorsTable) DropSchema(ctx context.Context, db DBTX) error {
	return dropTable(ctx, db, errorsTableName)
}

// Append writes one error entry.
func (t *errorsTable) Append(ctx context.Context, db DBTX, rec model.ErrorRecord, at time.Time) error {
	payload, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal error context: %w", err)
	}

	var stack *string
	if rec.StackTrace != "" {
		stack = &rec.StackTrace
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO errors (batch_id, occurred_at, category, message, context, stack_trace)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.BatchID, at, rec.Category, rec.Message, string(payload), stack); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

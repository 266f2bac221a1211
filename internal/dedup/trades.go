package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/insider-trades/internal/model"
)

const tradesTableName = "trades"

// tradesTable stores one row per distinct content hash.
type tradesTable struct {
	d Dialect
}

func (t *tradesTable) Name() string { return tradesTableName }

func (t *tradesTable) EnsureSchema(ctx context.Context, db DBTX) error {
	return execAll(ctx, db,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS trades (
				id %s,
				record_hash VARCHAR(64) NOT NULL UNIQUE,

				symbol VARCHAR(100) NOT NULL,
				transaction_date VARCHAR(100),
				first_name VARCHAR(100),
				last_name VARCHAR(100),
				type VARCHAR(100),
				amount VARCHAR(100),
				owner VARCHAR(100),
				asset_type VARCHAR(100),

				disclosure_date VARCHAR(100),
				office VARCHAR(100),
				district VARCHAR(100),
				asset_description TEXT,
				capital_gains_over_200_usd VARCHAR(100),
				comment TEXT,
				link TEXT,

				batch_id %s,
				first_seen_at %s NOT NULL,
				last_seen_at %s NOT NULL
			)`, t.d.Serial, t.d.UUID, t.d.Timestamp, t.d.Timestamp),
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_transaction_date ON trades (transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_batch_id ON trades (batch_id)`,
	)
}

func (t *tradesTable) DropSchema(ctx context.Context, db DBTX) error {
	return dropTable(ctx, db, tradesTableName)
}

// Upsert inserts the record if its hash is new. Otherwise only last_seen_at and
// batch_id are updated. The unique constraint on record_hash arbitrates between
// concurrent writers, so there is no read before the write.
func (t *tradesTable) Upsert(ctx context.Context, db DBTX, hash string, rec *model.TransactionRecord, batchID uuid.UUID, seenAt time.Time) (inserted bool, err error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO trades (
			record_hash, symbol, transaction_date, first_name, last_name, type, amount, owner, asset_type,
			disclosure_date, office, district, asset_description, capital_gains_over_200_usd, comment, link,
			batch_id, first_seen_at, last_seen_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (record_hash) DO NOTHING
	`,
		hash, rec.Symbol, rec.TransactionDate, rec.FirstName, rec.LastName, rec.Type, rec.Amount, rec.Owner, rec.AssetType,
		rec.DisclosureDate, rec.Office, rec.District, rec.AssetDescription, rec.CapitalGainsOver200USD, rec.Comment, rec.Link,
		batchID, seenAt, seenAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert trade: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE trades SET last_seen_at = $1, batch_id = $2 WHERE record_hash = $3
	`, seenAt, batchID, hash); err != nil {
		return false, fmt.Errorf("touch trade: %w", err)
	}

	return false, nil
}

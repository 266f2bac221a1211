package dedup

import (
	"context"
	"fmt"

	"github.com/rickgao/insider-trades/internal/model"
)

const pricesTableName = "price_observations"

var priceColumns = []string{
	"ticker", "record_hash", "date",
	"open_price", "high_price", "low_price", "close_price", "volume",
}

// pricesTable stores one row per (hash, trading day).
type pricesTable struct {
	d Dialect
}

func (t *pricesTable) Name() string { return pricesTableName }

func (t *pricesTable) EnsureSchema(ctx context.Context, db DBTX) error {
	return execAll(ctx, db,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS price_observations (
				id %s,
				ticker VARCHAR(100),
				record_hash VARCHAR(64) NOT NULL REFERENCES trades (record_hash),
				date DATE NOT NULL,
				open_price %s,
				high_price %s,
				low_price %s,
				close_price %s,
				volume BIGINT,
				UNIQUE (record_hash, date)
			)`, t.d.Serial, t.d.Decimal, t.d.Decimal, t.d.Decimal, t.d.Decimal),
		`CREATE INDEX IF NOT EXISTS idx_price_observations_ticker ON price_observations (ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_price_observations_record_hash ON price_observations (record_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_price_observations_ticker_date ON price_observations (ticker, date)`,
	)
}

func (t *pricesTable) DropSchema(ctx context.Context, db DBTX) error {
	return dropTable(ctx, db, pricesTableName)
}

// Exists reports whether any price row is stored for hash.
func (t *pricesTable) Exists(ctx context.Context, db DBTX, hash string) (bool, error) {
	return hasRows(ctx, db, pricesTableName, hash)
}

// Insert bulk-inserts bars, skipping (hash, date) pairs already stored.
func (t *pricesTable) Insert(ctx context.Context, db DBTX, hash, ticker string, bars []model.PriceBar) (int, error) {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{
			ticker, hash, b.Date.Format(model.DateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		})
	}
	return bulkInsert(ctx, db, pricesTableName, priceColumns, "ON CONFLICT (record_hash, date) DO NOTHING", rows)
}

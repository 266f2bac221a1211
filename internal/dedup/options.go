package dedup

import (
	"context"
	"fmt"

	"github.com/rickgao/insider-trades/internal/model"
)

const optionsTableName = "option_quotes"

var optionColumns = []string{
	"ticker", "record_hash", "s", "option_symbol", "underlying", "expiration", "side", "strike",
	"first_traded", "dte", "updated", "bid", "bid_size", "mid", "ask", "ask_size", "last",
	"open_interest", "volume", "in_the_money", "intrinsic_value", "extrinsic_value",
	"underlying_price", "iv", "delta", "gamma", "theta", "vega",
}

// optionsTable stores one row per (hash, option contract).
type optionsTable struct {
	d Dialect
}

func (t *optionsTable) Name() string { return optionsTableName }

func (t *optionsTable) EnsureSchema(ctx context.Context, db DBTX) error {
	dec := t.d.Decimal
	return execAll(ctx, db,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS option_quotes (
				id %s,
				ticker VARCHAR(100),
				record_hash VARCHAR(64) NOT NULL REFERENCES trades (record_hash),
				s VARCHAR(50),
				option_symbol VARCHAR(100) NOT NULL,
				underlying VARCHAR(50),
				expiration BIGINT,
				side VARCHAR(10),
				strike %[2]s,
				first_traded BIGINT,
				dte INTEGER,
				updated BIGINT,
				bid %[2]s,
				bid_size BIGINT,
				mid %[2]s,
				ask %[2]s,
				ask_size BIGINT,
				last %[2]s,
				open_interest BIGINT,
				volume BIGINT,
				in_the_money BOOLEAN,
				intrinsic_value %[2]s,
				extrinsic_value %[2]s,
				underlying_price %[2]s,
				iv %[2]s,
				delta %[2]s,
				gamma %[2]s,
				theta %[2]s,
				vega %[2]s,
				UNIQUE (record_hash, option_symbol)
			)`, t.d.Serial, dec),
		`CREATE INDEX IF NOT EXISTS idx_option_quotes_ticker ON option_quotes (ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_option_quotes_record_hash ON option_quotes (record_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_option_quotes_expiration ON option_quotes (expiration)`,
	)
}

func (t *optionsTable) DropSchema(ctx context.Context, db DBTX) error {
	return dropTable(ctx, db, optionsTableName)
}

// Exists reports whether any option row is stored for hash.
func (t *optionsTable) Exists(ctx context.Context, db DBTX, hash string) (bool, error) {
	return hasRows(ctx, db, optionsTableName, hash)
}

// Insert bulk-inserts quotes, skipping (hash, option_symbol) pairs already stored.
func (t *optionsTable) Insert(ctx context.Context, db DBTX, hash, ticker string, quotes []model.OptionQuote) (int, error) {
	rows := make([][]any, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []any{
			ticker, hash, q.Status, q.OptionSymbol, q.Underlying, q.Expiration, q.Side, q.Strike,
			q.FirstTraded, q.DTE, q.Updated, q.Bid, q.BidSize, q.Mid, q.Ask, q.AskSize, q.Last,
			q.OpenInterest, q.Volume, q.InTheMoney, q.IntrinsicValue, q.ExtrinsicValue,
			q.UnderlyingPrice, q.IV, q.Delta, q.Gamma, q.Theta, q.Vega,
		})
	}
	return bulkInsert(ctx, db, optionsTableName, optionColumns, "ON CONFLICT (record_hash, option_symbol) DO NOTHING", rows)
}

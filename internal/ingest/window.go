package ingest

import (
	"fmt"
	"time"

	"github.com/rickgao/insider-trades/internal/model"
)

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// PriceWindow returns the price-history range for rec.
//
// The range ends on the transaction date and starts lookbackDays before the
// disclosure date. When the transaction predates that start, the start moves
// back to lookbackDays before the transaction. Without a disclosure date the
// start is lookbackDays before the transaction.
func PriceWindow(rec *model.TransactionRecord, lookbackDays int) (Window, error) {
	tx, err := rec.TransactedOn()
	if err != nil {
		return Window{}, fmt.Errorf("transaction date %q: %w", model.Value(rec.TransactionDate), err)
	}

	start := tx.AddDate(0, 0, -lookbackDays)
	if disclosed, ok := rec.DisclosedOn(); ok {
		start = disclosed.AddDate(0, 0, -lookbackDays)
		if tx.Before(start) {
			start = tx.AddDate(0, 0, -lookbackDays)
		}
	}

	return Window{Start: start, End: tx}, nil
}

// OptionsWindow returns the chain snapshot date and the expiration range for
// rec: contracts expiring from the transaction date through horizonDays later.
func OptionsWindow(rec *model.TransactionRecord, horizonDays int) (snapshot time.Time, expirations Window, err error) {
	tx, err := rec.TransactedOn()
	if err != nil {
		return time.Time{}, Window{}, fmt.Errorf("transaction date %q: %w", model.Value(rec.TransactionDate), err)
	}
	return tx, Window{Start: tx, End: tx.AddDate(0, 0, horizonDays)}, nil
}

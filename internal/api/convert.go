package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// at returns col[i], or nil for an absent column.
func at[T any](col []*T, i int) *T {
	if i >= len(col) {
		return nil
	}
	return col[i]
}

// tradingDay returns the exchange-local calendar date of a bar timestamp as
// UTC midnight.
// 1736951400 with offset -18000 -> 2025-01-15
func tradingDay(ts, gmtOffset int64) time.Time {
	local := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// toDecimal converts a nullable JSON number. scale < 0 keeps full precision.
// "130.1999969482422" at scale 6 -> 130.199997
func toDecimal(n *json.Number, scale int32) (decimal.NullDecimal, error) {
	if n == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse number %q: %w", n.String(), err)
	}
	if scale >= 0 {
		d = d.Round(scale)
	}
	return decimal.NewNullDecimal(d), nil
}

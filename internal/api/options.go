package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/insider-trades/internal/model"
)

// ErrOptionsAPI is returned when the options provider answers with an error status.
var ErrOptionsAPI = errors.New("options api error")

// Status values of the s field in options responses.
const (
	optionsStatusOK     = "ok"
	optionsStatusNoData = "no_data"
	optionsStatusError  = "error"
)

// OptionsClient reads option chain snapshots.
type OptionsClient struct {
	client *Client
}

// NewOptionsClient creates an options chain client authenticated with a bearer token.
func NewOptionsClient(baseURL, token string, opts ...ClientOption) *OptionsClient {
	return &OptionsClient{client: NewClient(baseURL, token, opts...)}
}

// Chain returns the chain for symbol as of snapshot, restricted to contracts
// expiring between from and to. A no_data answer is an empty chain.
func (o *OptionsClient) Chain(ctx context.Context, symbol string, snapshot, from, to time.Time) ([]model.OptionQuote, error) {
	query := url.Values{}
	query.Set("date", snapshot.Format(model.DateLayout))
	query.Set("from", from.Format(model.DateLayout))
	query.Set("to", to.Format(model.DateLayout))

	path := "/options/chain/" + url.PathEscape(symbol) + "/"

	body, err := o.client.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		// no_data is served with a 404.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && isNoData(apiErr.Body) {
			return nil, nil
		}
		return nil, fmt.Errorf("options chain %s: %w", symbol, err)
	}

	quotes, err := decodeChain(body)
	if err != nil {
		return nil, fmt.Errorf("options chain %s: %w", symbol, err)
	}
	return quotes, nil
}

func isNoData(body []byte) bool {
	var head struct {
		S string `json:"s"`
	}
	return json.Unmarshal(body, &head) == nil && head.S == optionsStatusNoData
}

// decodeChain converts a columnar chain payload to rows.
func decodeChain(body []byte) ([]model.OptionQuote, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var status string
	if s, ok := raw["s"]; ok {
		if err := json.Unmarshal(s, &status); err != nil {
			return nil, fmt.Errorf("unmarshal status: %w", err)
		}
	}

	switch status {
	case optionsStatusError:
		var msg string
		if m, ok := raw["errmsg"]; ok {
			_ = json.Unmarshal(m, &msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrOptionsAPI, msg)
	case optionsStatusNoData:
		return nil, nil
	}

	for _, k := range []string{"s", "nextTime", "prevTime", "errmsg"} {
		delete(raw, k)
	}

	n := -1
	for name, msg := range raw {
		var col []json.RawMessage
		if err := json.Unmarshal(msg, &col); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if n < 0 {
			n = len(col)
		} else if len(col) != n {
			return nil, fmt.Errorf("column %s has %d values, want %d", name, len(col), n)
		}
	}
	if n <= 0 {
		return nil, nil
	}

	var c chainColumns
	if err := c.decode(raw); err != nil {
		return nil, err
	}

	if status == "" {
		status = optionsStatusOK
	}

	quotes := make([]model.OptionQuote, 0, n)
	for i := 0; i < n; i++ {
		sym := at(c.OptionSymbol, i)
		if sym == nil || *sym == "" {
			continue
		}
		q, err := c.row(i)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", *sym, err)
		}
		q.Status = status
		q.OptionSymbol = *sym
		quotes = append(quotes, q)
	}

	return quotes, nil
}

// chainColumns holds the typed columns of a chain payload. Absent columns stay nil.
type chainColumns struct {
	OptionSymbol    []*string
	Underlying      []*string
	Expiration      []*int64
	Side            []*string
	Strike          []*json.Number
	FirstTraded     []*int64
	DTE             []*int64
	Updated         []*int64
	Bid             []*json.Number
	BidSize         []*int64
	Mid             []*json.Number
	Ask             []*json.Number
	AskSize         []*int64
	Last            []*json.Number
	OpenInterest    []*int64
	Volume          []*int64
	InTheMoney      []*bool
	IntrinsicValue  []*json.Number
	ExtrinsicValue  []*json.Number
	UnderlyingPrice []*json.Number
	IV              []*json.Number
	Delta           []*json.Number
	Gamma           []*json.Number
	Theta           []*json.Number
	Vega            []*json.Number
}

func (c *chainColumns) decode(raw map[string]json.RawMessage) error {
	fields := map[string]any{
		"optionSymbol":    &c.OptionSymbol,
		"underlying":      &c.Underlying,
		"expiration":      &c.Expiration,
		"side":            &c.Side,
		"strike":          &c.Strike,
		"firstTraded":     &c.FirstTraded,
		"dte":             &c.DTE,
		"updated":         &c.Updated,
		"bid":             &c.Bid,
		"bidSize":         &c.BidSize,
		"mid":             &c.Mid,
		"ask":             &c.Ask,
		"askSize":         &c.AskSize,
		"last":            &c.Last,
		"openInterest":    &c.OpenInterest,
		"volume":          &c.Volume,
		"inTheMoney":      &c.InTheMoney,
		"intrinsicValue":  &c.IntrinsicValue,
		"extrinsicValue":  &c.ExtrinsicValue,
		"underlyingPrice": &c.UnderlyingPrice,
		"iv":              &c.IV,
		"delta":           &c.Delta,
		"gamma":           &c.Gamma,
		"theta":           &c.Theta,
		"vega":            &c.Vega,
	}

	for name, dst := range fields {
		msg, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	return nil
}

func (c *chainColumns) row(i int) (model.OptionQuote, error) {
	q := model.OptionQuote{
		Underlying:   at(c.Underlying, i),
		Expiration:   at(c.Expiration, i),
		Side:         at(c.Side, i),
		FirstTraded:  at(c.FirstTraded, i),
		DTE:          at(c.DTE, i),
		Updated:      at(c.Updated, i),
		BidSize:      at(c.BidSize, i),
		AskSize:      at(c.AskSize, i),
		OpenInterest: at(c.OpenInterest, i),
		Volume:       at(c.Volume, i),
		InTheMoney:   at(c.InTheMoney, i),
	}

	decimals := []struct {
		dst *decimal.NullDecimal
		col []*json.Number
	}{
		{&q.Strike, c.Strike},
		{&q.Bid, c.Bid},
		{&q.Mid, c.Mid},
		{&q.Ask, c.Ask},
		{&q.Last, c.Last},
		{&q.IntrinsicValue, c.IntrinsicValue},
		{&q.ExtrinsicValue, c.ExtrinsicValue},
		{&q.UnderlyingPrice, c.UnderlyingPrice},
		{&q.IV, c.IV},
		{&q.Delta, c.Delta},
		{&q.Gamma, c.Gamma},
		{&q.Theta, c.Theta},
		{&q.Vega, c.Vega},
	}
	for _, d := range decimals {
		v, err := toDecimal(at(d.col, i), priceScale)
		if err != nil {
			return model.OptionQuote{}, err
		}
		*d.dst = v
	}

	return q, nil
}

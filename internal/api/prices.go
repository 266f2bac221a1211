package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/insider-trades/internal/model"
)

// priceScale matches the NUMERIC(18,6) price columns.
const priceScale = 6

// ChartError is an error object returned inside a chart payload.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("chart error %s: %s", e.Code, e.Description)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*json.Number `json:"open"`
			High   []*json.Number `json:"high"`
			Low    []*json.Number `json:"low"`
			Close  []*json.Number `json:"close"`
			Volume []*int64       `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// PriceClient reads daily price history from the chart API.
type PriceClient struct {
	client *Client
}

// NewPriceClient creates a price history client. The chart API takes no key.
func NewPriceClient(baseURL string, opts ...ClientOption) *PriceClient {
	return &PriceClient{client: NewClient(baseURL, "", opts...)}
}

// History returns daily bars for symbol between start and end inclusive,
// ordered by date. No data for the range is an empty series, not an error.
func (p *PriceClient) History(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	query := url.Values{}
	query.Set("period1", strconv.FormatInt(start.Unix(), 10))
	query.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	query.Set("interval", "1d")
	query.Set("events", "history")

	path := "/v8/finance/chart/" + url.PathEscape(symbol)

	var resp chartResponse
	if err := p.client.get(ctx, path, query, &resp); err != nil {
		// Unknown symbols come back as 404 with a chart error body.
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			var body chartResponse
			if json.Unmarshal(apiErr.Body, &body) == nil && body.Chart.Error != nil {
				return nil, fmt.Errorf("price history %s: %w", symbol, body.Chart.Error)
			}
		}
		return nil, fmt.Errorf("price history %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("price history %s: %w", symbol, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	bars, err := resp.Chart.Result[0].bars()
	if err != nil {
		return nil, fmt.Errorf("price history %s: %w", symbol, err)
	}
	return bars, nil
}

// bars converts the columnar chart result to rows. Rows with no OHLC values
// are dropped.
func (r chartResult) bars() ([]model.PriceBar, error) {
	if len(r.Timestamp) == 0 {
		return nil, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, errors.New("chart result has timestamps but no quotes")
	}
	q := r.Indicators.Quote[0]

	n := len(r.Timestamp)
	for name, l := range map[string]int{
		"open": len(q.Open), "high": len(q.High), "low": len(q.Low),
		"close": len(q.Close), "volume": len(q.Volume),
	} {
		if l != 0 && l != n {
			return nil, fmt.Errorf("column %s has %d values, want %d", name, l, n)
		}
	}

	bars := make([]model.PriceBar, 0, n)
	for i, ts := range r.Timestamp {
		bar := model.PriceBar{
			Date:   tradingDay(ts, r.Meta.GMTOffset),
			Volume: at(q.Volume, i),
		}

		var err error
		if bar.Open, err = toDecimal(at(q.Open, i), priceScale); err != nil {
			return nil, err
		}
		if bar.High, err = toDecimal(at(q.High, i), priceScale); err != nil {
			return nil, err
		}
		if bar.Low, err = toDecimal(at(q.Low, i), priceScale); err != nil {
			return nil, err
		}
		if bar.Close, err = toDecimal(at(q.Close, i), priceScale); err != nil {
			return nil, err
		}

		if !bar.Open.Valid && !bar.High.Valid && !bar.Low.Valid && !bar.Close.Valid {
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

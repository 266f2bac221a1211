package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/insider-trades/internal/model"
)

// FeedClient reads the disclosure feed.
type FeedClient struct {
	client *Client
	path   string
}

// NewFeedClient creates a disclosure feed client. The API key is sent as the
// apikey query parameter.
func NewFeedClient(baseURL, path, apiKey string, opts ...ClientOption) *FeedClient {
	opts = append([]ClientOption{WithKeyParam("apikey")}, opts...)
	return &FeedClient{
		client: NewClient(baseURL, apiKey, opts...),
		path:   path,
	}
}

// Latest returns one page of disclosure records in feed order.
func (f *FeedClient) Latest(ctx context.Context, page, limit int) ([]model.TransactionRecord, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var records []model.TransactionRecord
	if err := f.client.get(ctx, f.path, query, &records); err != nil {
		return nil, fmt.Errorf("fetch disclosures: %w", err)
	}

	return records, nil
}

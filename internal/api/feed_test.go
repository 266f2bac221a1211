package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const feedPage = `[
  {
    "symbol": "NVDA",
    "disclosureDate": "2025-01-28",
    "transactionDate": "2025-01-10",
    "firstName": "Jane",
    "lastName": "Doe",
    "office": "Jane Doe",
    "district": "CA11",
    "owner": "Spouse",
    "assetDescription": "NVIDIA Corporation",
    "assetType": "Stock",
    "type": "Purchase",
    "amount": "$1,001 - $15,000",
    "capitalGainsOver200USD": "False",
    "comment": "--",
    "link": "https://disclosures-clerk.house.gov/example.pdf"
  },
  {
    "symbol": "AAPL",
    "transactionDate": "2025-01-09",
    "firstName": "John",
    "lastName": "Roe",
    "owner": null,
    "type": "Sale"
  }
]`

func TestFeedClient_Latest(t *testing.T) {
	t.Run("parses records in feed order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/house-latest" {
				t.Errorf("path = %q, want /house-latest", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("page") != "0" || q.Get("limit") != "10" || q.Get("apikey") != "fmp-key" {
				t.Errorf("query = %v", q)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(feedPage))
		}))
		defer server.Close()

		f := NewFeedClient(server.URL, "/house-latest", "fmp-key")
		records, err := f.Latest(context.Background(), 0, 10)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}

		first := records[0]
		if first.Ticker() != "NVDA" {
			t.Errorf("Ticker() = %q, want NVDA", first.Ticker())
		}
		if first.Link == nil || !strings.HasSuffix(*first.Link, "example.pdf") {
			t.Errorf("Link = %v", first.Link)
		}

		second := records[1]
		if second.Owner != nil {
			t.Errorf("Owner = %q, want nil for JSON null", *second.Owner)
		}
		if second.DisclosureDate != nil {
			t.Errorf("DisclosureDate = %q, want nil for absent field", *second.DisclosureDate)
		}
	})

	t.Run("non-array payload is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"Error Message": "Invalid API KEY."}`))
		}))
		defer server.Close()

		f := NewFeedClient(server.URL, "/house-latest", "bad")
		if _, err := f.Latest(context.Background(), 0, 10); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		f := NewFeedClient(server.URL, "/house-latest", "bad", WithRetries(3, time.Millisecond))
		_, err := f.Latest(context.Background(), 0, 10)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
		if strings.Contains(err.Error(), "bad") {
			t.Errorf("error leaks the API key: %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		f := NewFeedClient(server.URL, "/house-latest", "k", WithTimeout(20*time.Millisecond), WithRetries(0, time.Millisecond))
		if _, err := f.Latest(context.Background(), 0, 10); err == nil {
			t.Fatal("expected timeout error, got nil")
		}
	})
}

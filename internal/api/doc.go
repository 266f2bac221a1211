// Package api provides REST clients for the upstream data providers.
//
// Providers:
//   - Disclosure feed: GET {base}/house-latest?page=&limit=&apikey=
//   - Price history: GET {base}/v8/finance/chart/{symbol}?period1=&period2=&interval=1d
//   - Options chain: GET {base}/options/chain/{symbol}/?date=&from=&to= (bearer token)
//
// All clients share one core with jittered exponential backoff on 5xx and 429
// responses and an optional token-bucket rate limit.
package api

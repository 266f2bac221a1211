package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout of every date string exchanged with the feed and providers.
const DateLayout = "2006-01-02"

// -----------------------------------------------------------------------------
// Disclosure Types
// -----------------------------------------------------------------------------

// TransactionRecord is one disclosed trade as returned by the disclosure feed.
//
// Symbol, TransactionDate, FirstName, LastName, Type, Amount, Owner and AssetType
// define the record's identity. Everything else is descriptive or enrichment.
type TransactionRecord struct {
	// Identity fields
	Symbol          *string `json:"symbol"`
	TransactionDate *string `json:"transactionDate"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Type            *string `json:"type"`
	Amount          *string `json:"amount"`
	Owner           *string `json:"owner"`
	AssetType       *string `json:"assetType"`

	// Descriptive fields
	DisclosureDate         *string `json:"disclosureDate"`
	Office                 *string `json:"office"`
	District               *string `json:"district"`
	AssetDescription       *string `json:"assetDescription"`
	CapitalGainsOver200USD *string `json:"capitalGainsOver200USD"`
	Comment                *string `json:"comment"`
	Link                   *string `json:"link"`

	// Enrichment, populated at most once per record
	PriceSeries  []PriceBar    `json:"-"`
	OptionsChain []OptionQuote `json:"-"`
}

// Ticker returns the symbol, or "" when the feed sent none.
func (r *TransactionRecord) Ticker() string {
	return Value(r.Symbol)
}

// TransactedOn parses TransactionDate.
func (r *TransactionRecord) TransactedOn() (time.Time, error) {
	return ParseDate(Value(r.TransactionDate))
}

// DisclosedOn parses DisclosureDate. ok is false when the field is missing or malformed.
func (r *TransactionRecord) DisclosedOn() (t time.Time, ok bool) {
	if r.DisclosureDate == nil {
		return time.Time{}, false
	}
	t, err := ParseDate(*r.DisclosureDate)
	return t, err == nil
}

// -----------------------------------------------------------------------------
// Enrichment Types
// -----------------------------------------------------------------------------

// PriceBar is one daily OHLCV observation.
type PriceBar struct {
	Date   time.Time
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Close  decimal.NullDecimal
	Volume *int64
}

// OptionQuote is one option contract row from an options-chain snapshot.
type OptionQuote struct {
	Status          string // provider status of the snapshot ("ok")
	OptionSymbol    string // OCC symbol, unique per chain
	Underlying      *string
	Expiration      *int64 // unix seconds
	Side            *string
	Strike          decimal.NullDecimal
	FirstTraded     *int64 // unix seconds
	DTE             *int64
	Updated         *int64 // unix seconds
	Bid             decimal.NullDecimal
	BidSize         *int64
	Mid             decimal.NullDecimal
	Ask             decimal.NullDecimal
	AskSize         *int64
	Last            decimal.NullDecimal
	OpenInterest    *int64
	Volume          *int64
	InTheMoney      *bool
	IntrinsicValue  decimal.NullDecimal
	ExtrinsicValue  decimal.NullDecimal
	UnderlyingPrice decimal.NullDecimal
	IV              decimal.NullDecimal
	Delta           decimal.NullDecimal
	Gamma           decimal.NullDecimal
	Theta           decimal.NullDecimal
	Vega            decimal.NullDecimal
}

// -----------------------------------------------------------------------------
// Operational Types
// -----------------------------------------------------------------------------

// ErrorRecord is one entry of the append-only error log.
type ErrorRecord struct {
	BatchID    uuid.UUID
	Category   string
	Message    string
	Context    map[string]any // serialized as JSON; carries at least "symbol"
	StackTrace string
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

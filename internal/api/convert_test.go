package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		input   string
		scale   int32
		want    string
		wantErr bool
	}{
		{"130.1999969482422", 6, "130.199997", false},
		{"0.5123", 6, "0.5123", false},
		{"42", 6, "42", false},
		{"1e-7", 6, "0", false},
		{"0.123456789", -1, "0.123456789", false},
		{"abc", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n := json.Number(tt.input)
			got, err := toDecimal(&n, tt.scale)
			if (err != nil) != tt.wantErr {
				t.Fatalf("toDecimal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Valid {
				t.Fatalf("toDecimal(%q) is null", tt.input)
			}
			if got.Decimal.String() != tt.want {
				t.Errorf("toDecimal(%q) = %s, want %s", tt.input, got.Decimal.String(), tt.want)
			}
		})
	}

	got, err := toDecimal(nil, 6)
	if err != nil || got.Valid {
		t.Errorf("toDecimal(nil) = (%v, %v), want null", got, err)
	}
}

func TestTradingDay(t *testing.T) {
	tests := []struct {
		name   string
		ts     int64
		offset int64
		want   time.Time
	}{
		{"new york open", 1736951400, -18000, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"late utc evening stays local day", 1736989200, -18000, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"utc exchange", 1736899200, 0, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tradingDay(tt.ts, tt.offset); !got.Equal(tt.want) {
				t.Errorf("tradingDay(%d, %d) = %v, want %v", tt.ts, tt.offset, got, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	a, b := 1, 2
	col := []*int{&a, nil, &b}

	if got := at(col, 0); got == nil || *got != 1 {
		t.Errorf("at(col, 0) = %v, want 1", got)
	}
	if got := at(col, 1); got != nil {
		t.Errorf("at(col, 1) = %v, want nil", got)
	}
	if got := at[int](nil, 5); got != nil {
		t.Errorf("at(nil, 5) = %v, want nil", got)
	}
}

package market

import (
	"testing"
	"time"
)

func TestQuoteValidate(t *testing.T) {
	tests := []struct {
		name    string
		bid     float64
		ask     float64
		wantErr bool
	}{
		{"normal", 1.95, 1.97, false},
		{"locked market", 2.00, 2.00, false},
		{"zero bid", 0, 0.05, false},
		{"negative bid", -0.01, 0.05, true},
		{"negative ask", 0, -0.05, true},
		{"crossed", 2.10, 1.90, true},
	}
	for _, tt := range tests {
		q := Quote{Instrument: "SPY", Strike: 696, Right: Call, Bid: tt.bid, Ask: tt.ask}
		err := q.Validate()
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestQuoteSpread(t *testing.T) {
	q := Quote{Bid: 22.50, Ask: 22.70}
	if got := q.Spread(); got < 0.1999 || got > 0.2001 {
		t.Fatalf("got spread %.4f, want 0.20", got)
	}
}

func TestOptionSymbol(t *testing.T) {
	expiry := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		instrument string
		right      Right
		strike     float64
		want       string
	}{
		{"SPY", Call, 696, "O:SPY260320C00696000"},
		{"SPY", Put, 696, "O:SPY260320P00696000"},
		{"spx", Call, 6960, "O:SPX260320C06960000"},
		{"SPY", Put, 0.5, "O:SPY260320P00000500"},
	}
	for _, tt := range tests {
		got := OptionSymbol(tt.instrument, expiry, tt.right, tt.strike)
		if got != tt.want {
			t.Fatalf("OptionSymbol(%s, %s, %.2f) = %s, want %s",
				tt.instrument, tt.right, tt.strike, got, tt.want)
		}
	}
}

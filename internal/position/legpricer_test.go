package position

import (
	"errors"
	"testing"
	"time"

	"github.com/contactkeval/pair-credit/internal/market"
)

var observedAt = time.Date(2026, time.March, 20, 15, 30, 0, 0, time.UTC)

func quote(instrument string, strike float64, right market.Right, bid, ask float64) market.Quote {
	return market.Quote{
		Instrument: instrument,
		Strike:     strike,
		Right:      right,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: observedAt,
	}
}

func TestDecideSidePicksLargerCredit(t *testing.T) {
	tests := []struct {
		name           string
		quoteA         market.Quote
		quoteB         market.Quote
		expectedDir    Direction
		expectedCredit float64
	}{
		{
			"calls favor selling the index",
			quote("SPY", 696, market.Call, 1.95, 1.97),
			quote("SPX", 6980, market.Call, 22.50, 22.70),
			SellBBuyA,
			2800.0, // 22.50×10×100 − 1.97×100×100
		},
		{
			"puts favor selling the retail side",
			quote("SPY", 696, market.Put, 1.71, 1.73),
			quote("SPX", 6980, market.Put, 13.10, 13.30),
			SellABuyB,
			3800.0, // 1.71×100×100 − 13.30×10×100
		},
	}

	for _, test := range tests {
		d, err := DecideSide(test.quoteA, test.quoteB, 100, 10, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		if d.Direction != test.expectedDir {
			t.Fatalf("%s: expected direction %s, got %s", test.name, test.expectedDir, d.Direction)
		}
		if d.GrossCredit != test.expectedCredit {
			t.Fatalf("%s: expected credit %.2f, got %.2f", test.name, test.expectedCredit, d.GrossCredit)
		}
	}
}

// A debit is a valid answer: the larger of two negative credits comes
// back negative, never clamped to zero.
func TestDecideSideSurfacesNegativeCredit(t *testing.T) {
	qa := quote("SPY", 696, market.Call, 1.50, 2.50)
	qb := quote("SPX", 6980, market.Call, 18.00, 22.00)

	d, err := DecideSide(qa, qb, 100, 10, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// sell A: 1.50×10000 − 22.00×1000 = −7000
	// sell B: 18.00×1000 − 2.50×10000 = −7000 → tie, A sold (spread 1.00 vs 4.00)
	if d.GrossCredit >= 0 {
		t.Fatalf("expected negative credit, got %.2f", d.GrossCredit)
	}
}

// Equal credit breaks the tie toward the narrower sold spread.
func TestDecideSideTieBreak(t *testing.T) {
	qa := quote("SPY", 696, market.Call, 2.00, 2.00)
	qb := quote("SPX", 6980, market.Call, 19.90, 20.10)

	// sell A: 2.00×10000 − 20.10×1000 = −100
	// sell B: 19.90×1000 − 2.00×10000 = −100
	d, err := DecideSide(qa, qb, 100, 10, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Direction != SellABuyB {
		t.Fatalf("expected tie to sell the narrower spread (A), got %s", d.Direction)
	}
	if d.GrossCredit != -100.0 {
		t.Fatalf("expected credit -100, got %.2f", d.GrossCredit)
	}
}

// With spreadless quotes the two role assignments are exact mirrors:
// the credit of one is the negation of the other.
func TestAssignmentCreditAntisymmetry(t *testing.T) {
	tests := []struct {
		priceA float64
		priceB float64
	}{
		{2.50, 20.00},
		{1.97, 22.50},
		{0.0, 5.0},
	}

	for _, test := range tests {
		qa := quote("SPY", 696, market.Call, test.priceA, test.priceA)
		qb := quote("SPX", 6980, market.Call, test.priceB, test.priceB)

		sellA := assignmentCredit(qa, qb, 100, 10, 100)
		sellB := assignmentCredit(qb, qa, 10, 100, 100)
		if !sellA.Equal(sellB.Neg()) {
			t.Fatalf("expected antisymmetric credits, got %s and %s", sellA, sellB)
		}
	}
}

func TestDecideSideRejectsBadInput(t *testing.T) {
	call := quote("SPY", 696, market.Call, 1.95, 1.97)
	put := quote("SPX", 6980, market.Put, 13.10, 13.30)

	if _, err := DecideSide(call, put, 100, 10, 100); !errors.Is(err, ErrQuoteMismatch) {
		t.Fatalf("expected ErrQuoteMismatch for mixed rights, got %v", err)
	}

	crossed := quote("SPX", 6980, market.Call, 23.00, 22.00)
	if _, err := DecideSide(call, crossed, 100, 10, 100); err == nil {
		t.Fatalf("expected error for crossed quote")
	}

	if _, err := DecideSide(call, quote("SPX", 6980, market.Call, 22.50, 22.70), 0, 10, 100); !errors.Is(err, ErrQuoteMismatch) {
		t.Fatalf("expected ErrQuoteMismatch for zero quantity, got %v", err)
	}
}

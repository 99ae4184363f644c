// Package testutil provides canned market-data fixtures for tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/contactkeval/pair-credit/internal/market"
)

// FixtureSource is a market.QuoteSource backed by canned data. Quotes
// absent from the fixture yield market.ErrNoQuote, exactly like a real
// source with no observation.
type FixtureSource struct {
	Spots  map[string]float64
	Quotes map[string]market.Quote
}

// NewFixtureSource builds an empty fixture.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{
		Spots:  make(map[string]float64),
		Quotes: make(map[string]market.Quote),
	}
}

// AddQuote registers an observed quote.
func (f *FixtureSource) AddQuote(instrument string, strike float64, right market.Right, bid, ask float64, at time.Time) {
	f.Quotes[quoteKey(instrument, strike, right)] = market.Quote{
		Instrument: instrument,
		Strike:     strike,
		Right:      right,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: at,
	}
}

func (f *FixtureSource) Secondary() market.QuoteSource { return nil }

func (f *FixtureSource) Quote(instrument string, strike float64, right market.Right, at time.Time) (market.Quote, error) {
	q, ok := f.Quotes[quoteKey(instrument, strike, right)]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s %.2f %s", market.ErrNoQuote, instrument, strike, right)
	}
	return q, nil
}

func (f *FixtureSource) Spot(instrument string, at time.Time) (float64, error) {
	s, ok := f.Spots[instrument]
	if !ok {
		return 0, fmt.Errorf("no spot fixture for %s", instrument)
	}
	return s, nil
}

func quoteKey(instrument string, strike float64, right market.Right) string {
	return fmt.Sprintf("%s|%.4f|%s", instrument, strike, right)
}

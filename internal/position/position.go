// Package position builds and represents the four-leg dual-instrument
// credit structure: a call pair and a put pair across the retail
// instrument A and the index instrument B.
//
// Responsibilities:
//   - Decide, per option right, which instrument to sell and which to buy
//     to maximize entry credit
//   - Assemble the four legs and compute gross credit, commissions, and
//     net entry credit
//   - Enforce that every leg price comes from an observed quote
//
// Construction is pure: no broker is contacted, no state outside the
// returned Position is touched.
package position

import (
	"errors"
	"time"

	"github.com/contactkeval/pair-credit/internal/market"
)

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	// ErrMissingQuote: one of the four required legs has no observed
	// quote at the requested instant. Fatal to building that position;
	// the caller may skip the instant and keep scanning.
	ErrMissingQuote = errors.New("missing quote")

	// ErrQuoteMismatch: a quote was supplied for the wrong right or
	// instrument.
	ErrQuoteMismatch = errors.New("quote mismatch")
)

// Action is the order side of a leg.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// RiskState is the lifecycle state of an open position.
//
// A position is created Open. The risk monitor moves it to ClosePending
// when a short leg breaches its ITM-depth trigger; only an external close
// confirmation moves it to Closed. A position held to settlement without
// ever breaching simply stays Open.
type RiskState int

const (
	Open RiskState = iota
	ClosePending
	Closed
)

func (s RiskState) String() string {
	switch s {
	case Open:
		return "OPEN"
	case ClosePending:
		return "CLOSE_PENDING"
	case Closed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Warning is a non-fatal condition surfaced to the caller.
type Warning string

// NegativeCreditWarning flags a structure whose gross or net entry credit
// is negative (a debit). Valid, but never to be discarded silently.
const NegativeCreditWarning Warning = "negative_credit"

// Leg is one resolved option leg. EntryPrice always comes from an
// observed quote, never from another leg's price or an assumed ratio.
type Leg struct {
	Instrument string
	Strike     float64
	Right      market.Right
	Action     Action
	Qty        int
	EntryPrice float64
}

// Position is the four-leg structure: A-call, B-call, A-put, B-put, in
// that order, each with a distinct (instrument, right) pair. It is the
// sole mutable owner of its legs and risk state for the life of the
// trade.
type Position struct {
	InstrumentA string
	InstrumentB string

	Legs [4]Leg

	GrossCredit     float64
	CommissionTotal float64
	NetEntryCredit  float64

	// Entry-time spots, recorded so scenario analysis can reconstruct
	// the entry ratio without consulting live prices.
	EntrySpotA float64
	EntrySpotB float64

	ContractMultiplier float64

	EnteredAt time.Time
	State     RiskState

	Warnings []Warning
}

// ShortLegs returns the SELL legs of the position.
func (p *Position) ShortLegs() []Leg {
	out := make([]Leg, 0, 2)
	for _, leg := range p.Legs {
		if leg.Action == Sell {
			out = append(out, leg)
		}
	}
	return out
}

// ContractCount is the total number of contracts across all four legs,
// the basis for commission accounting.
func (p *Position) ContractCount() int {
	n := 0
	for _, leg := range p.Legs {
		n += leg.Qty
	}
	return n
}

// HasWarning reports whether the position carries the given warning.
func (p *Position) HasWarning(w Warning) bool {
	for _, have := range p.Warnings {
		if have == w {
			return true
		}
	}
	return false
}

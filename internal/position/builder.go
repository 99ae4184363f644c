package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/market"
)

// BuildConfig carries everything position construction needs; nothing is
// read from ambient state.
type BuildConfig struct {
	InstrumentA string
	InstrumentB string

	QtyA int // contracts of A per side
	QtyB int // contracts of B per side

	CommissionPerContract float64
	ContractMultiplier    float64 // dollars per point, e.g. 100

	EntrySpotA float64
	EntrySpotB float64

	EnteredAt time.Time
}

// Build combines a call-side and a put-side decision into the canonical
// four-leg position and settles the credit arithmetic: gross credit is
// the sum of the two side credits, commissions are contract count times
// the per-contract rate, net entry credit is gross minus commissions.
//
// A negative gross or net credit attaches NegativeCreditWarning to the
// returned position rather than failing; a debit structure is a valid
// answer that the caller must see.
func Build(calls, puts SideDecision, cfg BuildConfig) (*Position, error) {
	if calls.Right != market.Call || puts.Right != market.Put {
		return nil, fmt.Errorf("%w: side decisions carry wrong rights (%s, %s)",
			ErrQuoteMismatch, calls.Right, puts.Right)
	}

	pos := &Position{
		InstrumentA:        cfg.InstrumentA,
		InstrumentB:        cfg.InstrumentB,
		EntrySpotA:         cfg.EntrySpotA,
		EntrySpotB:         cfg.EntrySpotB,
		ContractMultiplier: cfg.ContractMultiplier,
		EnteredAt:          cfg.EnteredAt,
		State:              Open,
	}

	callA, callB, err := sideLegs(calls, cfg)
	if err != nil {
		return nil, err
	}
	putA, putB, err := sideLegs(puts, cfg)
	if err != nil {
		return nil, err
	}
	pos.Legs = [4]Leg{callA, callB, putA, putB}

	gross := decimal.NewFromFloat(calls.GrossCredit).
		Add(decimal.NewFromFloat(puts.GrossCredit))
	commission := decimal.NewFromInt(int64(pos.ContractCount())).
		Mul(decimal.NewFromFloat(cfg.CommissionPerContract))
	net := gross.Sub(commission)

	pos.GrossCredit = gross.InexactFloat64()
	pos.CommissionTotal = commission.InexactFloat64()
	pos.NetEntryCredit = net.InexactFloat64()

	if gross.IsNegative() || net.IsNegative() {
		pos.Warnings = append(pos.Warnings, NegativeCreditWarning)
		logger.Infof("negative entry credit: gross=%s net=%s", gross.String(), net.String())
	}

	logger.Debugf("position built: gross=%.2f commission=%.2f net=%.2f contracts=%d",
		pos.GrossCredit, pos.CommissionTotal, pos.NetEntryCredit, pos.ContractCount())

	return pos, nil
}

// BuildFromQuotes is the full entry pipeline for one instant: decide the
// call side, decide the put side, and assemble the position. Any nil
// quote aborts with ErrMissingQuote — a calculated or estimated price is
// never substituted for a missing observation.
func BuildFromQuotes(callA, callB, putA, putB *market.Quote, cfg BuildConfig) (*Position, error) {
	for _, missing := range []struct {
		q     *market.Quote
		which string
	}{
		{callA, "a_call"}, {callB, "b_call"}, {putA, "a_put"}, {putB, "b_put"},
	} {
		if missing.q == nil || missing.q.ObservedAt.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrMissingQuote, missing.which)
		}
	}

	calls, err := DecideSide(*callA, *callB, cfg.QtyA, cfg.QtyB, cfg.ContractMultiplier)
	if err != nil {
		return nil, fmt.Errorf("call side: %w", err)
	}
	puts, err := DecideSide(*putA, *putB, cfg.QtyA, cfg.QtyB, cfg.ContractMultiplier)
	if err != nil {
		return nil, fmt.Errorf("put side: %w", err)
	}

	return Build(calls, puts, cfg)
}

// sideLegs turns one side decision into its (A leg, B leg) pair. The
// sold leg enters at the observed bid, the bought leg at the observed
// ask.
func sideLegs(d SideDecision, cfg BuildConfig) (Leg, Leg, error) {
	sell := Leg{
		Instrument: d.SellQuote.Instrument,
		Strike:     d.SellQuote.Strike,
		Right:      d.Right,
		Action:     Sell,
		Qty:        d.SellQty,
		EntryPrice: d.SellQuote.Bid,
	}
	buy := Leg{
		Instrument: d.BuyQuote.Instrument,
		Strike:     d.BuyQuote.Strike,
		Right:      d.Right,
		Action:     Buy,
		Qty:        d.BuyQty,
		EntryPrice: d.BuyQuote.Ask,
	}

	switch {
	case sell.Instrument == cfg.InstrumentA && buy.Instrument == cfg.InstrumentB:
		return sell, buy, nil
	case sell.Instrument == cfg.InstrumentB && buy.Instrument == cfg.InstrumentA:
		return buy, sell, nil
	}
	return Leg{}, Leg{}, fmt.Errorf("%w: decision instruments %s/%s not %s/%s",
		ErrQuoteMismatch, sell.Instrument, buy.Instrument, cfg.InstrumentA, cfg.InstrumentB)
}

// Package scan drives the per-instant analysis pipeline: select the ATM
// strike pair, resolve the four quotes, pick the credit-maximizing side
// per right, build the position, and sweep its hypothetical P&L.
//
// Instants that cannot be evaluated (missing quote, bad spot) are
// reported and skipped; the scan keeps going. Construction failures are
// per-instant, never fatal to the run.
package scan

import (
	"errors"
	"fmt"
	"time"

	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/market"
	"github.com/contactkeval/pair-credit/internal/position"
	"github.com/contactkeval/pair-credit/internal/riskmonitor"
	"github.com/contactkeval/pair-credit/internal/strikes"
	"github.com/contactkeval/pair-credit/internal/sweep"
)

// Config carries every parameter the pipeline needs; core packages never
// read ambient state.
type Config struct {
	InstrumentA string
	InstrumentB string

	IncrementA float64
	IncrementB float64
	Multiplier float64

	QtyA int
	QtyB int

	CommissionPerContract float64
	ContractMultiplier    float64

	HalfWidth float64
	Samples   int
	Workers   int

	// DepthThreshold marks the sweep scenarios in which a short leg
	// would already warrant an early close. TriggerRule optionally
	// replaces the plain depth comparison, see riskmonitor.Config.
	DepthThreshold float64
	TriggerRule    string
}

// Record is the structured per-instant output handed to the reporting
// collaborator.
type Record struct {
	At       time.Time
	Strikes  strikes.Pair
	Position *position.Position
	Sweep    *sweep.Result

	// EarlyCloseAt is the smallest-magnitude pct move in the sweep at
	// which the short-leg depth trigger would fire, nil if none does.
	EarlyCloseAt *float64
}

// Analyzer evaluates instants against a quote source.
type Analyzer struct {
	cfg Config
	src market.QuoteSource
}

func New(cfg Config, src market.QuoteSource) *Analyzer {
	return &Analyzer{cfg: cfg, src: src}
}

// EvaluateAt runs the full pipeline for a single instant.
func (a *Analyzer) EvaluateAt(at time.Time) (*Record, error) {
	spotA, err := a.src.Spot(a.cfg.InstrumentA, at)
	if err != nil {
		return nil, fmt.Errorf("spot %s: %w", a.cfg.InstrumentA, err)
	}
	spotB, err := a.src.Spot(a.cfg.InstrumentB, at)
	if err != nil {
		return nil, fmt.Errorf("spot %s: %w", a.cfg.InstrumentB, err)
	}

	pair, err := strikes.Select(spotA, spotB, strikes.Config{
		IncrementA: a.cfg.IncrementA,
		IncrementB: a.cfg.IncrementB,
		Multiplier: a.cfg.Multiplier,
	})
	if err != nil {
		return nil, err
	}

	callA, err := a.quote(a.cfg.InstrumentA, pair.A, market.Call, at)
	if err != nil {
		return nil, err
	}
	callB, err := a.quote(a.cfg.InstrumentB, pair.B, market.Call, at)
	if err != nil {
		return nil, err
	}
	putA, err := a.quote(a.cfg.InstrumentA, pair.A, market.Put, at)
	if err != nil {
		return nil, err
	}
	putB, err := a.quote(a.cfg.InstrumentB, pair.B, market.Put, at)
	if err != nil {
		return nil, err
	}

	pos, err := position.BuildFromQuotes(callA, callB, putA, putB, position.BuildConfig{
		InstrumentA:           a.cfg.InstrumentA,
		InstrumentB:           a.cfg.InstrumentB,
		QtyA:                  a.cfg.QtyA,
		QtyB:                  a.cfg.QtyB,
		CommissionPerContract: a.cfg.CommissionPerContract,
		ContractMultiplier:    a.cfg.ContractMultiplier,
		EntrySpotA:            spotA,
		EntrySpotB:            spotB,
		EnteredAt:             at,
	})
	if err != nil {
		return nil, err
	}
	if pos.HasWarning(position.NegativeCreditWarning) {
		logger.Infof("instant %s prices as a debit: net=%.2f",
			at.Format(time.RFC3339), pos.NetEntryCredit)
	}

	res, err := sweep.Run(pos, sweep.Config{
		HalfWidth: a.cfg.HalfWidth,
		Samples:   a.cfg.Samples,
		Workers:   a.cfg.Workers,
	})
	if err != nil {
		return nil, err
	}

	earlyClose, err := a.earlyCloseMove(pos, res)
	if err != nil {
		return nil, err
	}

	return &Record{
		At:           at,
		Strikes:      pair,
		Position:     pos,
		Sweep:        res,
		EarlyCloseAt: earlyClose,
	}, nil
}

// Run evaluates every instant, skipping those whose position cannot be
// built and logging why. Missing quotes are the expected skip cause.
func (a *Analyzer) Run(instants []time.Time) []Record {
	out := make([]Record, 0, len(instants))
	for _, at := range instants {
		rec, err := a.EvaluateAt(at)
		if err != nil {
			if errors.Is(err, position.ErrMissingQuote) {
				logger.Infof("instant %s skipped: %v", at.Format(time.RFC3339), err)
			} else {
				logger.Errorf("instant %s failed: %v", at.Format(time.RFC3339), err)
			}
			continue
		}
		out = append(out, *rec)
		logger.Infof("instant %s: net=%.2f worst=%.2f best=%.2f",
			at.Format(time.RFC3339),
			rec.Position.NetEntryCredit, rec.Sweep.WorstCase, rec.Sweep.BestCase)
	}
	return out
}

// Instants expands a start/end/step window into evaluation instants,
// inclusive of start, exclusive of anything past end.
func Instants(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 || end.Before(start) {
		return nil
	}
	var out []time.Time
	for at := start; !at.After(end); at = at.Add(step) {
		out = append(out, at)
	}
	return out
}

// quote fetches one leg quote, mapping the source's no-data answer onto
// the position package's missing-quote error so callers can classify it.
func (a *Analyzer) quote(instrument string, strike float64, right market.Right, at time.Time) (*market.Quote, error) {
	q, err := a.src.Quote(instrument, strike, right, at)
	if err != nil {
		if errors.Is(err, market.ErrNoQuote) {
			return nil, fmt.Errorf("%w: %s %.2f %s", position.ErrMissingQuote, instrument, strike, right)
		}
		return nil, err
	}
	return &q, nil
}

// earlyCloseMove runs the risk trigger in what-if mode over the sweep
// grid and returns the smallest-magnitude pct move that would fire it,
// nil if none would.
func (a *Analyzer) earlyCloseMove(pos *position.Position, res *sweep.Result) (*float64, error) {
	if a.cfg.DepthThreshold <= 0 && a.cfg.TriggerRule == "" {
		return nil, nil
	}

	mon, err := riskmonitor.New(pos, nil, riskmonitor.Config{
		DepthThreshold: a.cfg.DepthThreshold,
		TriggerRule:    a.cfg.TriggerRule,
	})
	if err != nil {
		return nil, err
	}

	best := (*float64)(nil)
	for i := range res.Points {
		sc := res.Points[i].Scenario
		fired, err := mon.WouldTrigger(sc.PriceA, sc.PriceB)
		if err != nil {
			return nil, err
		}
		if !fired {
			continue
		}
		m := sc.PctMove
		if best == nil || abs(m) < abs(*best) {
			best = &m
		}
	}
	return best, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

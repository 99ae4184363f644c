// Package sweep evaluates a position's profit and loss over a grid of
// hypothetical lockstep price scenarios.
//
// The sweep is predictive: every input is known at entry time. Scenario
// prices for both instruments are derived from the entry spots by the
// same signed percentage move, so the entry-time price ratio between the
// two instruments is preserved at every grid point. No realized future
// price participates anywhere in the computation, and identical inputs
// always produce identical output.
package sweep

import (
	"fmt"
	"math"
	"sync"

	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/position"
	"github.com/contactkeval/pair-credit/internal/pricing"
)

// Scenario is one hypothetical lockstep move: both instruments displaced
// from their entry spots by the identical signed percentage.
type Scenario struct {
	PctMove float64
	PriceA  float64
	PriceB  float64
}

// Point pairs a scenario with the position's total P&L under it.
type Point struct {
	Scenario Scenario
	TotalPnL float64
}

// Result is the ordered scenario grid with its derived extremes.
type Result struct {
	Points    []Point
	WorstCase float64
	BestCase  float64
}

// Config bounds the sweep.
type Config struct {
	HalfWidth float64 // e.g. 0.03 for ±3%
	Samples   int     // grid points; 1 (or HalfWidth 0) collapses to the no-move point
	Workers   int     // goroutines for scenario evaluation; ≤1 runs inline
}

// Run sweeps the position over the configured grid.
//
// Per leg, P&L is (settlement value − entry premium) × qty × contract
// multiplier, negated for short legs; the scenario total adds the net
// entry credit on top. WorstCase/BestCase are the min/max over the grid.
func Run(pos *position.Position, cfg Config) (*Result, error) {
	if pos == nil {
		return nil, fmt.Errorf("nil position")
	}
	if cfg.HalfWidth < 0 {
		return nil, fmt.Errorf("negative half width %.4f", cfg.HalfWidth)
	}
	if cfg.Samples < 1 {
		return nil, fmt.Errorf("sample count %d < 1", cfg.Samples)
	}
	if pos.EntrySpotA <= 0 || pos.EntrySpotB <= 0 {
		return nil, fmt.Errorf("non-positive entry spots %.4f/%.4f", pos.EntrySpotA, pos.EntrySpotB)
	}

	moves := grid(cfg.HalfWidth, cfg.Samples)
	points := make([]Point, len(moves))

	eval := func(i int) {
		m := moves[i]
		sc := Scenario{
			PctMove: m,
			PriceA:  pos.EntrySpotA * (1 + m),
			PriceB:  pos.EntrySpotB * (1 + m),
		}
		points[i] = Point{Scenario: sc, TotalPnL: scenarioPnL(pos, sc)}
	}

	if cfg.Workers > 1 && len(moves) > 1 {
		// Each grid point is independent; workers write disjoint slice
		// slots and the reduction below is order-free.
		var wg sync.WaitGroup
		next := make(chan int)
		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range next {
					eval(i)
				}
			}()
		}
		for i := range moves {
			next <- i
		}
		close(next)
		wg.Wait()
	} else {
		for i := range moves {
			eval(i)
		}
	}

	res := &Result{
		Points:    points,
		WorstCase: math.Inf(1),
		BestCase:  math.Inf(-1),
	}
	for _, p := range points {
		res.WorstCase = math.Min(res.WorstCase, p.TotalPnL)
		res.BestCase = math.Max(res.BestCase, p.TotalPnL)
	}

	logger.Debugf("sweep done: points=%d worst=%.2f best=%.2f",
		len(points), res.WorstCase, res.BestCase)
	return res, nil
}

// scenarioPnL computes the position's total P&L under one scenario.
func scenarioPnL(pos *position.Position, sc Scenario) float64 {
	total := pos.NetEntryCredit
	for _, leg := range pos.Legs {
		price := sc.PriceA
		if leg.Instrument == pos.InstrumentB {
			price = sc.PriceB
		}
		exit := pricing.Intrinsic(price, leg.Strike, leg.Right)
		pnl := (exit - leg.EntryPrice) * float64(leg.Qty) * pos.ContractMultiplier
		if leg.Action == position.Sell {
			pnl = -pnl
		}
		total += pnl
	}
	return total
}

// grid builds the symmetric pct-move grid in [-halfWidth, +halfWidth].
func grid(halfWidth float64, samples int) []float64 {
	if samples == 1 || halfWidth == 0 {
		return []float64{0}
	}
	out := make([]float64, samples)
	step := 2 * halfWidth / float64(samples-1)
	for i := range out {
		out[i] = -halfWidth + step*float64(i)
	}
	return out
}

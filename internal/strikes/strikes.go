// Package strikes selects at-the-money strike pairs for the two
// instruments of a dual-listed structure.
//
// The two instruments trade at a fixed notional multiplier (the index
// instrument B quotes at multiplier × the retail instrument A). A pair is
// always derived from A's side: A's strike is rounded to its grid, then
// scaled by the multiplier onto B's grid. The ratio between the two
// strikes therefore equals the multiplier exactly by construction.
package strikes

import (
	"errors"
	"fmt"
	"math"

	"github.com/contactkeval/pair-credit/internal/logger"
)

// ErrInvalidStrike is returned for non-positive spots, increments, or
// multipliers.
var ErrInvalidStrike = errors.New("invalid strike input")

// Config describes the strike grids of the two instruments and their
// fixed multiplier.
type Config struct {
	IncrementA float64 // strike increment of the retail instrument
	IncrementB float64 // strike increment of the index instrument
	Multiplier float64 // B notional per unit of A, e.g. 10
}

// Pair is a multiplier-consistent strike pair: B == A × multiplier.
type Pair struct {
	A float64
	B float64
}

// Select chooses the ATM strike pair for the given spots.
//
// A's strike is rounded to the coarsest grid that keeps the scaled strike
// on B's grid, so the multiplier relationship holds exactly rather than
// by coincidence of the two roundings. spotB participates only in
// validation and divergence logging; the pair itself is a function of
// spotA.
func Select(spotA, spotB float64, cfg Config) (Pair, error) {
	if spotA <= 0 || spotB <= 0 {
		return Pair{}, fmt.Errorf("%w: spot_a=%.4f spot_b=%.4f", ErrInvalidStrike, spotA, spotB)
	}
	if cfg.IncrementA <= 0 || cfg.IncrementB <= 0 {
		return Pair{}, fmt.Errorf("%w: increment_a=%.4f increment_b=%.4f",
			ErrInvalidStrike, cfg.IncrementA, cfg.IncrementB)
	}
	if cfg.Multiplier <= 0 {
		return Pair{}, fmt.Errorf("%w: multiplier=%.4f", ErrInvalidStrike, cfg.Multiplier)
	}

	grid := pairGrid(cfg)
	strikeA := math.Round(spotA/grid) * grid
	strikeB := strikeA * cfg.Multiplier

	implied := spotA * cfg.Multiplier
	if math.Abs(implied-spotB) > 0.01*spotB {
		logger.Debugf("spot divergence: implied_b=%.2f observed_b=%.2f", implied, spotB)
	}

	logger.Tracef("atm pair strike_a=%.2f strike_b=%.2f grid=%.4f", strikeA, strikeB, grid)
	return Pair{A: strikeA, B: strikeB}, nil
}

// pairGrid returns the smallest multiple of IncrementA whose scaled value
// lands on B's grid. Falls back to IncrementA when no multiple below a
// sanity bound works (mismatched grids); the pair is then still exact,
// just possibly off B's listed grid, which the quote source will surface
// as a missing quote.
func pairGrid(cfg Config) float64 {
	const maxSteps = 1000
	for k := 1; k <= maxSteps; k++ {
		g := cfg.IncrementA * float64(k)
		scaled := g * cfg.Multiplier
		steps := scaled / cfg.IncrementB
		if math.Abs(steps-math.Round(steps)) < 1e-9 {
			return g
		}
	}
	logger.Infof("no common strike grid for increments %.4f/%.4f at multiplier %.2f",
		cfg.IncrementA, cfg.IncrementB, cfg.Multiplier)
	return cfg.IncrementA
}

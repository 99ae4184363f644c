// Package riskmonitor watches an open position for short-leg assignment
// risk and drives the early-close lifecycle.
//
// State machine:
//
//	OPEN ──trigger──▶ CLOSE_PENDING ──confirmation──▶ CLOSED
//
// OPEN is also terminal: a position held to settlement without ever
// breaching the trigger is settled at expiration, not force-closed here.
// The CLOSE_PENDING → CLOSED transition happens only on the broker
// collaborator's confirmation; the monitor never assumes a close filled.
//
// The monitor is the single logical owner of the position's risk state.
// Hosts embedding it in a concurrent loop must serialize Update calls.
package riskmonitor

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"

	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/position"
	"github.com/contactkeval/pair-credit/internal/pricing"
)

// Typed errors for callers and tests.
var (
	ErrNotPending    = errors.New("no close pending")
	ErrAlreadyClosed = errors.New("position already closed")
)

// Confirmation acknowledges that the broker collaborator filled a close
// order for the position.
type Confirmation struct {
	OrderID  string
	FilledAt string
}

// CloseBroker is the broker collaborator consumed by the monitor. It is
// only ever invoked on the OPEN → CLOSE_PENDING transition. A nil error
// acknowledges the request, nothing more: the fill arrives later as a
// Confirmation passed to Confirm.
type CloseBroker interface {
	SubmitClose(p *position.Position) error
}

// Config parameterizes the trigger.
//
// By default the monitor fires when any short leg's in-the-money depth
// exceeds DepthThreshold (in underlying points of that leg's own
// instrument). TriggerRule optionally replaces the default with a
// boolean expression over the parameters `depth`, `threshold`, and
// `pct_move`, e.g. "depth > threshold * 1.5 || pct_move > 0.02".
type Config struct {
	DepthThreshold float64
	TriggerRule    string
}

// Monitor owns the risk state of one position.
type Monitor struct {
	pos    *position.Position
	broker CloseBroker
	cfg    Config
	rule   *govaluate.EvaluableExpression
}

// New builds a monitor for an open position. The trigger expression, if
// any, is parsed up front so a malformed rule fails fast.
func New(pos *position.Position, broker CloseBroker, cfg Config) (*Monitor, error) {
	if pos == nil {
		return nil, fmt.Errorf("nil position")
	}
	if cfg.DepthThreshold < 0 {
		return nil, fmt.Errorf("negative depth threshold %.4f", cfg.DepthThreshold)
	}

	m := &Monitor{pos: pos, broker: broker, cfg: cfg}
	if cfg.TriggerRule != "" {
		expr, err := govaluate.NewEvaluableExpression(cfg.TriggerRule)
		if err != nil {
			return nil, fmt.Errorf("parsing trigger rule: %w", err)
		}
		m.rule = expr
	}
	return m, nil
}

// State returns the current risk state.
func (m *Monitor) State() position.RiskState {
	return m.pos.State
}

// Update feeds one price observation to the monitor. When the trigger
// fires on an OPEN position it transitions to CLOSE_PENDING and submits
// a close request to the broker collaborator. A failed submission leaves
// the state CLOSE_PENDING — the request stands, and the host retries
// against the broker directly.
func (m *Monitor) Update(priceA, priceB float64) (position.RiskState, error) {
	if m.pos.State != position.Open {
		return m.pos.State, nil
	}

	depth := ShortLegDepth(m.pos, priceA, priceB)
	pctMove := priceA/m.pos.EntrySpotA - 1

	fired, err := m.fired(depth, pctMove)
	if err != nil {
		return m.pos.State, err
	}
	if !fired {
		logger.Tracef("risk ok: depth=%.2f threshold=%.2f", depth, m.cfg.DepthThreshold)
		return m.pos.State, nil
	}

	logger.Infof("risk trigger: depth=%.2f threshold=%.2f pct_move=%.4f",
		depth, m.cfg.DepthThreshold, pctMove)
	m.pos.State = position.ClosePending

	if m.broker != nil {
		if err := m.broker.SubmitClose(m.pos); err != nil {
			return m.pos.State, fmt.Errorf("submitting close: %w", err)
		}
	}
	return m.pos.State, nil
}

// Confirm applies the broker's close confirmation.
func (m *Monitor) Confirm(c Confirmation) error {
	switch m.pos.State {
	case position.Closed:
		return ErrAlreadyClosed
	case position.Open:
		return ErrNotPending
	}
	logger.Infof("close confirmed: order=%s filled_at=%s", c.OrderID, c.FilledAt)
	m.pos.State = position.Closed
	return nil
}

// WouldTrigger evaluates the trigger against hypothetical prices without
// touching state. What-if callers use it to mark scenarios that would
// warrant an early close.
func (m *Monitor) WouldTrigger(priceA, priceB float64) (bool, error) {
	depth := ShortLegDepth(m.pos, priceA, priceB)
	return m.fired(depth, priceA/m.pos.EntrySpotA-1)
}

func (m *Monitor) fired(depth, pctMove float64) (bool, error) {
	if m.rule == nil {
		return depth > m.cfg.DepthThreshold, nil
	}
	result, err := m.rule.Evaluate(map[string]interface{}{
		"depth":     depth,
		"threshold": m.cfg.DepthThreshold,
		"pct_move":  pctMove,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating trigger rule: %w", err)
	}
	fired, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("trigger rule %q is not boolean", m.cfg.TriggerRule)
	}
	return fired, nil
}

// ShortLegDepth returns the deepest in-the-money depth across the
// position's short legs, each evaluated at its own instrument's price.
// Pure; usable for what-if analysis as well as live monitoring.
func ShortLegDepth(pos *position.Position, priceA, priceB float64) float64 {
	depth := 0.0
	for _, leg := range pos.ShortLegs() {
		price := priceA
		if leg.Instrument == pos.InstrumentB {
			price = priceB
		}
		depth = math.Max(depth, pricing.Intrinsic(price, leg.Strike, leg.Right))
	}
	return depth
}

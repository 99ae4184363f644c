package riskmonitor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/contactkeval/pair-credit/internal/market"
	"github.com/contactkeval/pair-credit/internal/position"
)

var enteredAt = time.Date(2026, time.March, 20, 15, 30, 0, 0, time.UTC)

func q(instrument string, strike float64, right market.Right, bid, ask float64) *market.Quote {
	return &market.Quote{
		Instrument: instrument,
		Strike:     strike,
		Right:      right,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: enteredAt,
	}
}

// openPosition builds the worked example: short SPX 6980 calls and short
// SPY 696 puts, long the opposite legs.
func openPosition(t *testing.T) *position.Position {
	t.Helper()
	pos, err := position.BuildFromQuotes(
		q("SPY", 696, market.Call, 1.95, 1.97),
		q("SPX", 6980, market.Call, 22.50, 22.70),
		q("SPY", 696, market.Put, 1.71, 1.73),
		q("SPX", 6980, market.Put, 13.10, 13.30),
		position.BuildConfig{
			InstrumentA:        "SPY",
			InstrumentB:        "SPX",
			QtyA:               100,
			QtyB:               10,
			ContractMultiplier: 100,
			EntrySpotA:         696.39,
			EntrySpotB:         6977.74,
			EnteredAt:          enteredAt,
		})
	if err != nil {
		t.Fatalf("building position: %v", err)
	}
	return pos
}

// fakeBroker records close submissions and can be made to fail.
type fakeBroker struct {
	submitted []*position.Position
	fail      bool
}

func (b *fakeBroker) SubmitClose(p *position.Position) error {
	if b.fail {
		return fmt.Errorf("broker unavailable")
	}
	b.submitted = append(b.submitted, p)
	return nil
}

func TestShortLegDepth(t *testing.T) {
	pos := openPosition(t)

	tests := []struct {
		name   string
		priceA float64
		priceB float64
		want   float64
	}{
		{"both out of the money", 698.00, 6975.00, 0},
		{"short call in the money", 699.50, 6995.00, 15.00},
		{"short put in the money", 690.00, 6900.00, 6.00},
		{"deepest short leg wins", 690.00, 7000.00, 20.00},
	}
	for _, tt := range tests {
		got := ShortLegDepth(pos, tt.priceA, tt.priceB)
		if got != tt.want {
			t.Fatalf("%s: got depth %.2f, want %.2f", tt.name, got, tt.want)
		}
	}
}

func TestUpdateLifecycle(t *testing.T) {
	pos := openPosition(t)
	broker := &fakeBroker{}
	m, err := New(pos, broker, Config{DepthThreshold: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// below threshold: stays OPEN
	state, err := m.Update(698.00, 6985.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.Open {
		t.Fatalf("expected OPEN, got %s", state)
	}
	if len(broker.submitted) != 0 {
		t.Fatalf("no close should have been submitted yet")
	}

	// exactly at threshold: trigger is strict, stays OPEN
	state, err = m.Update(698.00, 6990.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.Open {
		t.Fatalf("expected OPEN at exact threshold, got %s", state)
	}

	// breach: transitions and submits exactly one close
	state, err = m.Update(699.50, 6995.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.ClosePending {
		t.Fatalf("expected CLOSE_PENDING, got %s", state)
	}
	if len(broker.submitted) != 1 {
		t.Fatalf("expected one close submission, got %d", len(broker.submitted))
	}

	// further updates are inert while pending
	state, err = m.Update(700.00, 7050.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.ClosePending || len(broker.submitted) != 1 {
		t.Fatalf("pending position must not re-trigger")
	}

	if err := m.Confirm(Confirmation{OrderID: "ord-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != position.Closed {
		t.Fatalf("expected CLOSED, got %s", m.State())
	}

	// closed is terminal
	state, err = m.Update(700.00, 7050.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.Closed {
		t.Fatalf("expected CLOSED to be terminal, got %s", state)
	}
	if err := m.Confirm(Confirmation{}); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestConfirmWithoutPending(t *testing.T) {
	pos := openPosition(t)
	m, err := New(pos, &fakeBroker{}, Config{DepthThreshold: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Confirm(Confirmation{OrderID: "ord-9"}); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if m.State() != position.Open {
		t.Fatalf("spurious confirmation must not change state, got %s", m.State())
	}
}

func TestUpdateBrokerFailureKeepsPending(t *testing.T) {
	pos := openPosition(t)
	broker := &fakeBroker{fail: true}
	m, err := New(pos, broker, Config{DepthThreshold: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := m.Update(699.50, 6995.00)
	if err == nil {
		t.Fatalf("expected submission error")
	}
	if state != position.ClosePending {
		t.Fatalf("failed submission must leave CLOSE_PENDING, got %s", state)
	}

	// host retries the broker directly, then confirms
	if err := m.Confirm(Confirmation{OrderID: "ord-retry"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != position.Closed {
		t.Fatalf("expected CLOSED, got %s", m.State())
	}
}

func TestTriggerRule(t *testing.T) {
	pos := openPosition(t)
	broker := &fakeBroker{}
	m, err := New(pos, broker, Config{
		DepthThreshold: 10,
		TriggerRule:    "depth > threshold * 2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// depth 15 breaches the default rule but not the custom one
	state, err := m.Update(699.50, 6995.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.Open {
		t.Fatalf("custom rule should not have fired at depth 15, got %s", state)
	}

	// depth 25 > 20
	state, err = m.Update(699.50, 7005.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != position.ClosePending {
		t.Fatalf("custom rule should have fired at depth 25, got %s", state)
	}
}

func TestWouldTriggerIsStateless(t *testing.T) {
	pos := openPosition(t)
	broker := &fakeBroker{}
	m, err := New(pos, broker, Config{DepthThreshold: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fired, err := m.WouldTrigger(699.50, 6995.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fired {
		t.Fatalf("expected trigger at depth 15")
	}
	if m.State() != position.Open {
		t.Fatalf("what-if evaluation must not change state, got %s", m.State())
	}
	if len(broker.submitted) != 0 {
		t.Fatalf("what-if evaluation must not contact the broker")
	}

	fired, err = m.WouldTrigger(698.00, 6985.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fired {
		t.Fatalf("unexpected trigger at depth 5")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	pos := openPosition(t)

	if _, err := New(nil, &fakeBroker{}, Config{DepthThreshold: 10}); err == nil {
		t.Fatalf("expected error for nil position")
	}
	if _, err := New(pos, &fakeBroker{}, Config{DepthThreshold: -1}); err == nil {
		t.Fatalf("expected error for negative threshold")
	}
	if _, err := New(pos, &fakeBroker{}, Config{
		DepthThreshold: 10,
		TriggerRule:    "depth >",
	}); err == nil {
		t.Fatalf("expected error for malformed trigger rule")
	}
}

func TestNonBooleanRuleSurfacesError(t *testing.T) {
	pos := openPosition(t)
	m, err := New(pos, &fakeBroker{}, Config{
		DepthThreshold: 10,
		TriggerRule:    "depth + threshold",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := m.Update(699.50, 6995.00)
	if err == nil {
		t.Fatalf("expected error for non-boolean rule result")
	}
	if state != position.Open {
		t.Fatalf("rule error must not change state, got %s", state)
	}
}

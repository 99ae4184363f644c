package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Right identifies the option right.
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// ErrNoQuote is returned when no quote was observed for the requested
// contract at the requested instant. Callers must treat it as "no data",
// never substitute an estimate.
var ErrNoQuote = errors.New("no quote observed")

// Quote is a single observed bid/ask for an option contract.
// Quotes are immutable and consumed by value.
type Quote struct {
	Instrument string
	Strike     float64
	Right      Right
	Bid        float64
	Ask        float64
	ObservedAt time.Time
}

// Validate checks basic quote sanity: both sides non-negative and bid ≤ ask.
func (q Quote) Validate() error {
	if q.Bid < 0 || q.Ask < 0 {
		return fmt.Errorf("quote %s %.2f %s: negative price bid=%.4f ask=%.4f",
			q.Instrument, q.Strike, q.Right, q.Bid, q.Ask)
	}
	if q.Bid > q.Ask {
		return fmt.Errorf("quote %s %.2f %s: bid %.4f above ask %.4f",
			q.Instrument, q.Strike, q.Right, q.Bid, q.Ask)
	}
	return nil
}

// Spread returns the bid-ask spread.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// QuoteSource supplies observed market data.
//
// Quote resolves exactly one quote per (instrument, strike, right, instant):
// the latest quote observed at or before the instant. When a source has no
// observation it returns ErrNoQuote (possibly after consulting its
// secondary), never a computed estimate.
type QuoteSource interface {
	Secondary() QuoteSource
	Quote(instrument string, strike float64, right Right, at time.Time) (Quote, error)
	Spot(instrument string, at time.Time) (float64, error)
}

// OptionSymbol formats an OCC-style option ticker:
// <root><YYMMDD><C|P><strike*1000 padded to 8 digits>.
func OptionSymbol(instrument string, expiry time.Time, right Right, strike float64) string {
	expDt := expiry.UTC().Format("060102")
	rightCode := "C"
	if right == Put {
		rightCode = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	return fmt.Sprintf("O:%s%s%s%08d", strings.ToUpper(instrument), expDt, rightCode, strikeInt)
}

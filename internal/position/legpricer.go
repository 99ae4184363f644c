package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/market"
)

// Direction tags which instrument is sold in a side decision.
type Direction string

const (
	SellABuyB Direction = "sell_a_buy_b"
	SellBBuyA Direction = "sell_b_buy_a"
)

// SideDecision is the outcome of pricing one option right across the two
// instruments: which side to sell, which to buy, and the resulting gross
// credit in dollars. A negative credit (a debit) is a valid outcome and
// is carried through unchanged.
type SideDecision struct {
	Right       market.Right
	Direction   Direction
	GrossCredit float64

	SellQuote market.Quote
	BuyQuote  market.Quote
	SellQty   int
	BuyQty    int
}

// assignmentCredit values one role assignment in dollars: the sold side is
// marked at its bid, the bought side at its ask, each scaled by quantity
// and the contract multiplier.
func assignmentCredit(sell, buy market.Quote, sellQty, buyQty int, contractMult float64) decimal.Decimal {
	mult := decimal.NewFromFloat(contractMult)
	sellValue := decimal.NewFromFloat(sell.Bid).
		Mul(decimal.NewFromInt(int64(sellQty))).
		Mul(mult)
	buyValue := decimal.NewFromFloat(buy.Ask).
		Mul(decimal.NewFromInt(int64(buyQty))).
		Mul(mult)
	return sellValue.Sub(buyValue)
}

// DecideSide compares the two role assignments for one option right —
// sell A/buy B versus sell B/buy A — and returns whichever yields the
// larger gross credit.
//
// Tie-break: when both assignments produce the same credit, the
// instrument with the narrower bid-ask spread is sold (lower execution
// risk). This is a policy choice, not an emergent property.
func DecideSide(
	quoteA, quoteB market.Quote,
	qtyA, qtyB int,
	contractMult float64,
) (SideDecision, error) {

	if quoteA.Right != quoteB.Right {
		return SideDecision{}, fmt.Errorf("%w: rights differ (%s vs %s)",
			ErrQuoteMismatch, quoteA.Right, quoteB.Right)
	}
	if err := quoteA.Validate(); err != nil {
		return SideDecision{}, err
	}
	if err := quoteB.Validate(); err != nil {
		return SideDecision{}, err
	}
	if qtyA <= 0 || qtyB <= 0 || contractMult <= 0 {
		return SideDecision{}, fmt.Errorf("%w: qty_a=%d qty_b=%d contract_mult=%.2f",
			ErrQuoteMismatch, qtyA, qtyB, contractMult)
	}

	sellA := assignmentCredit(quoteA, quoteB, qtyA, qtyB, contractMult)
	sellB := assignmentCredit(quoteB, quoteA, qtyB, qtyA, contractMult)

	logger.Tracef("side decision %s: sell_a_credit=%s sell_b_credit=%s",
		quoteA.Right, sellA.String(), sellB.String())

	pickA := sellA.GreaterThan(sellB)
	if sellA.Equal(sellB) {
		pickA = quoteA.Spread() <= quoteB.Spread()
	}

	if pickA {
		return SideDecision{
			Right:       quoteA.Right,
			Direction:   SellABuyB,
			GrossCredit: sellA.InexactFloat64(),
			SellQuote:   quoteA,
			BuyQuote:    quoteB,
			SellQty:     qtyA,
			BuyQty:      qtyB,
		}, nil
	}
	return SideDecision{
		Right:       quoteA.Right,
		Direction:   SellBBuyA,
		GrossCredit: sellB.InexactFloat64(),
		SellQuote:   quoteB,
		BuyQuote:    quoteA,
		SellQty:     qtyB,
		BuyQty:      qtyA,
	}, nil
}

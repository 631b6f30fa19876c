// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfolionormalize transforms a parsed statement into the three
// canonical datasets: daily fractional returns, per-instrument position
// values, and per-trade transactions.
//
// Normalization is pure and deterministic: the same statement always produces
// byte-identical datasets. Errors propagate without local recovery; the
// transformation is all-or-nothing per statement.
package flexfolionormalize

import (
	"fmt"
	"sort"

	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliocalendar"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolioinstrument"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliostatement"
	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// CashRowID is the canonical ID of the synthetic cash row in the Positions
// dataset, holding the residual of NAV over the instrument position values.
const CashRowID = "cash"

// PositionFillPolicy selects how Positions dates before the period-end
// snapshot are populated. Statements provide position values only at the end
// date, so anything earlier is synthesized; the default is to synthesize
// nothing.
type PositionFillPolicy string

const (
	// PositionFillAbsent reports positions only on the snapshot date.
	// Earlier dates are absent rather than zero-filled. This is the default.
	PositionFillAbsent PositionFillPolicy = "absent"
	// PositionFillZero writes explicit zero rows for every instrument on
	// pre-snapshot dates, with the cash row carrying the full NAV.
	PositionFillZero PositionFillPolicy = "zero"
)

// ParsePositionFillPolicy parses a string into a PositionFillPolicy.
func ParsePositionFillPolicy(s string) (PositionFillPolicy, error) {
	switch PositionFillPolicy(s) {
	case PositionFillAbsent, PositionFillZero:
		return PositionFillPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown position fill policy %q, must be one of: %s, %s", s, PositionFillAbsent, PositionFillZero)
	}
}

// ReturnPoint is one day's fractional portfolio return.
type ReturnPoint struct {
	// Date is the calendar date.
	Date xtime.Date
	// Return is the fractional return for the date, e.g. 0.01 for one percent.
	Return decimal.Decimal
}

// PositionRow is one instrument's market value on one date. The synthetic
// cash row uses CashRowID as its canonical ID.
type PositionRow struct {
	// Date is the valuation date.
	Date xtime.Date
	// CanonicalID is the canonical instrument ID, or CashRowID.
	CanonicalID string
	// Value is the market value in the account base currency.
	Value decimal.Decimal
}

// TransactionRow is one executed trade.
type TransactionRow struct {
	// Date is the trade date.
	Date xtime.Date
	// CanonicalID is the canonical instrument ID.
	CanonicalID string
	// Quantity is the signed executed quantity.
	Quantity decimal.Decimal
	// Price is the execution price per unit quantity.
	Price decimal.Decimal
	// TradeID is the statement-local trade identifier, kept for ordering
	// and idempotent deduplication by consumers.
	TradeID string
}

// Result holds the three normalized datasets.
// Returns and NAVs share the calendar index; Transactions are sparse.
type Result struct {
	// Returns is the daily fractional return series, one point per calendar day.
	Returns []ReturnPoint
	// NAVs is the aligned end-of-day NAV series, index-matched with Returns.
	NAVs []decimal.Decimal
	// Positions is the per-instrument market value rows plus the cash row.
	Positions []PositionRow
	// Transactions is one row per trade, ordered by (date, trade ID).
	Transactions []TransactionRow
}

// Option is a functional option for Normalize.
type Option func(*normalizer)

// WithPositionFill sets the pre-snapshot Positions fill policy.
func WithPositionFill(policy PositionFillPolicy) Option {
	return func(n *normalizer) {
		n.positionFill = policy
	}
}

type normalizer struct {
	positionFill PositionFillPolicy
}

// Normalize produces the returns, positions, and transactions datasets from a
// parsed statement, using the resolver for instrument identity and the
// aligner for the daily calendar.
func Normalize(
	statement *flexfoliostatement.Statement,
	resolver *flexfolioinstrument.Resolver,
	aligner *flexfoliocalendar.Aligner,
	options ...Option,
) (*Result, error) {
	n := &normalizer{
		positionFill: PositionFillAbsent,
	}
	for _, option := range options {
		option(n)
	}
	days := aligner.Days()
	// Step 1: align the NAV series onto the calendar.
	navPoints := make(map[xtime.Date]decimal.Decimal, len(statement.NAVPoints))
	for _, navPoint := range statement.NAVPoints {
		navPoints[navPoint.Date] = navPoint.Total
	}
	navs, err := aligner.AlignNAV(navPoints)
	if err != nil {
		return nil, err
	}
	// Step 2: compute daily returns from NAV deltas net of external flows.
	returns, err := n.computeReturns(statement, days, navs)
	if err != nil {
		return nil, err
	}
	// Step 3: distribute the period-end position snapshot.
	positions, err := n.computePositions(statement, resolver, days, navs)
	if err != nil {
		return nil, err
	}
	// Step 4: project trades through the resolver.
	transactions, err := n.computeTransactions(statement, resolver)
	if err != nil {
		return nil, err
	}
	return &Result{
		Returns:      returns,
		NAVs:         navs,
		Positions:    positions,
		Transactions: transactions,
	}, nil
}

// computeReturns computes the daily fractional return series.
//
// Returns[d] = (NAV[d] - NAV[d-1] - flow[d]) / NAV[d-1], where flow sums only
// external deposits and withdrawals, so the series measures investment
// performance rather than capital movement. The first day is zero by
// convention: there is no prior NAV inside the statement to diff against.
func (n *normalizer) computeReturns(
	statement *flexfoliostatement.Statement,
	days []xtime.Date,
	navs []decimal.Decimal,
) ([]ReturnPoint, error) {
	flows := make(map[xtime.Date]decimal.Decimal, len(statement.CashTransactions))
	for _, cashTransaction := range statement.CashTransactions {
		if !cashTransaction.Kind.IsExternalFlow() {
			continue
		}
		amount := cashTransaction.Amount
		// A non-base flow always carries an explicit rate (the parser rejects
		// it otherwise); apply it so the flow is in the base currency.
		if !cashTransaction.FXRateToBase.IsZero() {
			amount = amount.Mul(cashTransaction.FXRateToBase)
		}
		flows[cashTransaction.Date] = flows[cashTransaction.Date].Add(amount)
	}
	returns := make([]ReturnPoint, len(days))
	for i, day := range days {
		point := ReturnPoint{Date: day}
		if i > 0 {
			prior := navs[i-1]
			if !prior.IsZero() {
				point.Return = navs[i].Sub(prior).Sub(flows[day]).Div(prior)
			}
			// A zero prior NAV (account inception or reset inside the
			// window) yields a zero return rather than a division error.
		}
		returns[i] = point
	}
	return returns, nil
}

// computePositions builds the Positions dataset: the period-end snapshot
// values plus a synthetic cash row holding NAV minus the sum of position
// values. Pre-snapshot dates are absent under the default policy, since
// synthesizing historical position values without daily snapshots would be
// fabrication.
func (n *normalizer) computePositions(
	statement *flexfoliostatement.Statement,
	resolver *flexfolioinstrument.Resolver,
	days []xtime.Date,
	navs []decimal.Decimal,
) ([]PositionRow, error) {
	if len(days) == 0 {
		return nil, nil
	}
	endDate := days[len(days)-1]
	endNAV := navs[len(navs)-1]
	snapshot := make([]PositionRow, 0, len(statement.OpenPositions))
	positionsTotal := decimal.Decimal{}
	for _, openPosition := range statement.OpenPositions {
		canonicalID, err := resolver.Resolve(openPosition.Symbol, openPosition.Conid, openPosition.Currency)
		if err != nil {
			return nil, fmt.Errorf("resolving open position dated %v: %w", openPosition.Date, err)
		}
		snapshot = append(snapshot, PositionRow{
			Date:        endDate,
			CanonicalID: canonicalID,
			Value:       openPosition.Value,
		})
		positionsTotal = positionsTotal.Add(openPosition.Value)
	}
	// Deterministic row order within a date.
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CanonicalID < snapshot[j].CanonicalID
	})
	var rows []PositionRow
	if n.positionFill == PositionFillZero {
		for i, day := range days[:len(days)-1] {
			for _, row := range snapshot {
				rows = append(rows, PositionRow{
					Date:        day,
					CanonicalID: row.CanonicalID,
				})
			}
			rows = append(rows, PositionRow{
				Date:        day,
				CanonicalID: CashRowID,
				Value:       navs[i],
			})
		}
	}
	rows = append(rows, snapshot...)
	rows = append(rows, PositionRow{
		Date:        endDate,
		CanonicalID: CashRowID,
		Value:       endNAV.Sub(positionsTotal),
	})
	return rows, nil
}

// computeTransactions projects every trade through the resolver, ordered by
// (date, trade ID) ascending for determinism.
func (n *normalizer) computeTransactions(
	statement *flexfoliostatement.Statement,
	resolver *flexfolioinstrument.Resolver,
) ([]TransactionRow, error) {
	transactions := make([]TransactionRow, 0, len(statement.Trades))
	for _, trade := range statement.Trades {
		canonicalID, err := resolver.Resolve(trade.Symbol, trade.Conid, trade.Currency)
		if err != nil {
			return nil, fmt.Errorf("resolving trade %q dated %v: %w", trade.TradeID, trade.Date, err)
		}
		transactions = append(transactions, TransactionRow{
			Date:        trade.Date,
			CanonicalID: canonicalID,
			Quantity:    trade.Quantity,
			Price:       trade.Price,
			TradeID:     trade.TradeID,
		})
	}
	sort.Slice(transactions, func(i, j int) bool {
		if c := transactions[i].Date.Compare(transactions[j].Date); c != 0 {
			return c < 0
		}
		return transactions[i].TradeID < transactions[j].TradeID
	})
	return transactions, nil
}

// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfoliocalendar establishes the daily calendar spanned by a
// statement and aligns sparse series onto it.
//
// The calendar is every calendar day in the statement range, not only trading
// days: the broker's NAV points already reflect its own valuation calendar,
// and a day with no report carries the prior day's value forward rather than
// interpolating.
package flexfoliocalendar

import (
	"errors"
	"fmt"

	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// ErrMissingBaseline indicates that no NAV is reported on the first date of
// the statement range. Returns cannot be computed without an opening value.
var ErrMissingBaseline = errors.New("missing baseline")

// FillPolicy selects how gaps in a NAV series are filled.
// The broker-report convention here is an open question, so the policy is
// configurable rather than hard-coded.
type FillPolicy string

const (
	// FillCarryForward repeats the last reported NAV on unreported days,
	// which makes the gap a zero-return day. This is the default.
	FillCarryForward FillPolicy = "carry-forward"
	// FillStrict refuses gaps: every day in the range must have a NAV point.
	FillStrict FillPolicy = "strict"
)

// ParseFillPolicy parses a string into a FillPolicy.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(s) {
	case FillCarryForward, FillStrict:
		return FillPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown fill policy %q, must be one of: %s, %s", s, FillCarryForward, FillStrict)
	}
}

// Aligner produces the ordered daily date sequence for one statement and
// re-indexes series onto it.
type Aligner struct {
	days []xtime.Date
	fill FillPolicy
}

// NewAligner creates an Aligner for the inclusive range fromDate..toDate.
func NewAligner(fromDate xtime.Date, toDate xtime.Date, fill FillPolicy) *Aligner {
	numDays := toDate.DaysSince(fromDate) + 1
	if numDays < 1 {
		numDays = 0
	}
	days := make([]xtime.Date, numDays)
	for i := range days {
		days[i] = fromDate.AddDays(i)
	}
	return &Aligner{
		days: days,
		fill: fill,
	}
}

// Days returns the ordered daily date sequence, every calendar day in range.
// The returned slice must not be mutated.
func (a *Aligner) Days() []xtime.Date {
	return a.days
}

// AlignNAV re-indexes sparse NAV points onto the calendar, one value per day
// in Days() order, filling gaps according to the aligner's policy.
//
// A missing value on the very first day is fatal regardless of policy:
// there is nothing to carry forward from.
func (a *Aligner) AlignNAV(points map[xtime.Date]decimal.Decimal) ([]decimal.Decimal, error) {
	if len(a.days) == 0 {
		return nil, nil
	}
	aligned := make([]decimal.Decimal, len(a.days))
	for i, day := range a.days {
		value, ok := points[day]
		if !ok {
			if i == 0 {
				return nil, fmt.Errorf("%w: no NAV reported on %v, the first date of the statement range", ErrMissingBaseline, day)
			}
			if a.fill == FillStrict {
				return nil, fmt.Errorf("%w: no NAV reported on %v and fill policy is %s", ErrMissingBaseline, day, FillStrict)
			}
			// No activity is assumed on unreported days.
			value = aligned[i-1]
		}
		aligned[i] = value
	}
	return aligned, nil
}

// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfoliostatement provides the typed statement model and the parser
// for IBKR Flex Query statement XML.
//
// A statement covers one closed reporting period for one account. The parser
// is a pure transformation from raw XML bytes to a Statement; it never touches
// the network or the filesystem. All values are decoded into decimals, all
// dates into civil dates, and record-level invariants are checked at parse
// time so that downstream code can rely on a well-formed model.
package flexfoliostatement

import (
	"errors"

	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedInput indicates a schema violation in the statement XML:
	// a missing required attribute, an unparseable date or number, or a
	// record dated outside the statement period.
	ErrMalformedInput = errors.New("malformed input")
	// ErrIncompleteStatement indicates that a section expected in the
	// statement (e.g., Trades) is entirely absent. A section that is present
	// but empty is valid.
	ErrIncompleteStatement = errors.New("incomplete statement")
	// ErrDuplicateRecord indicates that two records share an identity that
	// must be unique within a statement (trade ID, NAV report date).
	ErrDuplicateRecord = errors.New("duplicate record")
	// ErrUnsupportedCurrency indicates a record denominated in a currency
	// other than the account base currency with no FX rate on the record.
	// The statement core never performs FX conversion.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Statement is the in-memory model of one parsed Flex statement.
// It is created once by Parse and immutable thereafter.
type Statement struct {
	// AccountID is the broker account identifier (e.g., "U1234567").
	AccountID string
	// BaseCurrency is the account base currency ISO code.
	BaseCurrency string
	// FromDate is the first date of the reporting period, inclusive.
	FromDate xtime.Date
	// ToDate is the last date of the reporting period, inclusive.
	ToDate xtime.Date
	// Trades is the list of executed trades in the period.
	Trades []Trade
	// CashTransactions is the list of cash movements in the period.
	CashTransactions []CashTransaction
	// NAVPoints is the list of end-of-day portfolio values, one per reported day.
	NAVPoints []NAVPoint
	// OpenPositions is the position snapshot as of ToDate.
	OpenPositions []OpenPosition
}

// Trade is a single trade execution.
type Trade struct {
	// TradeID is the broker-assigned trade identifier, unique within a statement.
	TradeID string
	// Date is the trade date.
	Date xtime.Date
	// Symbol is the broker-local ticker symbol.
	Symbol string
	// Conid is the broker-local contract identifier.
	Conid string
	// Currency is the ISO currency code of the trade.
	Currency string
	// Quantity is the signed executed quantity (positive buy, negative sell).
	Quantity decimal.Decimal
	// Price is the execution price in Currency units per unit quantity.
	Price decimal.Decimal
	// Commission is the commission charged, non-positive in statement convention.
	Commission decimal.Decimal
	// FXRateToBase is the rate converting Currency to the base currency,
	// zero when the trade is in the base currency.
	FXRateToBase decimal.Decimal
}

// CashKind classifies a cash transaction. The set is closed so the
// normalizer's handling of each kind is exhaustively checked.
type CashKind string

const (
	// CashKindDividend is a dividend or payment in lieu of a dividend.
	CashKindDividend CashKind = "dividend"
	// CashKindInterest is credit or debit interest.
	CashKindInterest CashKind = "interest"
	// CashKindFee is a broker fee or commission adjustment.
	CashKindFee CashKind = "fee"
	// CashKindDeposit is an external deposit into the account.
	CashKindDeposit CashKind = "deposit"
	// CashKindWithdrawal is an external withdrawal from the account.
	CashKindWithdrawal CashKind = "withdrawal"
	// CashKindOther is any cash movement not covered by the other kinds.
	CashKindOther CashKind = "other"
)

// IsExternalFlow reports whether the kind moves capital in or out of the
// account, as opposed to investment income or cost booked inside it.
// Only external flows are subtracted from NAV deltas when computing returns.
func (k CashKind) IsExternalFlow() bool {
	return k == CashKindDeposit || k == CashKindWithdrawal
}

// CashTransaction is a single cash movement.
type CashTransaction struct {
	// Date is the settlement date of the movement.
	Date xtime.Date
	// Currency is the ISO currency code of the amount.
	Currency string
	// Kind classifies the movement.
	Kind CashKind
	// Amount is the signed amount in Currency units.
	Amount decimal.Decimal
	// FXRateToBase converts Currency to the base currency, zero for base-currency amounts.
	FXRateToBase decimal.Decimal
}

// NAVPoint is the end-of-day total portfolio value, cash included.
type NAVPoint struct {
	// Date is the report date of the valuation.
	Date xtime.Date
	// Total is the net asset value in the base currency.
	Total decimal.Decimal
}

// OpenPosition is one instrument's holding in the period-end snapshot.
// Statements report positions at a single snapshot date, not as a time series.
type OpenPosition struct {
	// Date is the snapshot date, always equal to the statement ToDate.
	Date xtime.Date
	// Symbol is the broker-local ticker symbol.
	Symbol string
	// Conid is the broker-local contract identifier.
	Conid string
	// Currency is the ISO currency code of the valuation.
	Currency string
	// Quantity is the signed held quantity.
	Quantity decimal.Decimal
	// MarkPrice is the valuation price per unit quantity.
	MarkPrice decimal.Decimal
	// Value is the market value of the holding (Quantity times MarkPrice).
	Value decimal.Decimal
}

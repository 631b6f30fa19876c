// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package flexfoliostatement

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// xmlFlexQueryResponse is the top-level XML structure of a Flex Query statement.
type xmlFlexQueryResponse struct {
	XMLName        xml.Name          `xml:"FlexQueryResponse"`
	FlexStatements xmlFlexStatements `xml:"FlexStatements"`
}

// xmlFlexStatements contains one FlexStatement per broker account.
type xmlFlexStatements struct {
	Statements []xmlFlexStatement `xml:"FlexStatement"`
}

// xmlFlexStatement mirrors one FlexStatement element. Section fields are
// pointers so that an entirely absent section is distinguishable from a
// present-but-empty one.
type xmlFlexStatement struct {
	AccountID          string                 `xml:"accountId,attr"`
	FromDate           string                 `xml:"fromDate,attr"`
	ToDate             string                 `xml:"toDate,attr"`
	AccountInformation *xmlAccountInformation `xml:"AccountInformation"`
	EquitySummary      *xmlEquitySummary      `xml:"EquitySummaryInBase"`
	Trades             *xmlTrades             `xml:"Trades"`
	CashTransactions   *xmlCashTransactions   `xml:"CashTransactions"`
	OpenPositions      *xmlOpenPositions      `xml:"OpenPositions"`
}

type xmlAccountInformation struct {
	AccountID string `xml:"accountId,attr"`
	Currency  string `xml:"currency,attr"`
}

type xmlEquitySummary struct {
	Points []xmlEquitySummaryPoint `xml:"EquitySummaryByReportDateInBase"`
}

// xmlEquitySummaryPoint is one end-of-day valuation row.
// All values are already in the account base currency.
type xmlEquitySummaryPoint struct {
	ReportDate string `xml:"reportDate,attr"`
	Total      string `xml:"total,attr"`
}

type xmlTrades struct {
	Trades []xmlTrade `xml:"Trade"`
}

// xmlTrade represents a trade in the IBKR Flex Query XML format.
// All fields are XML attributes.
type xmlTrade struct {
	TradeID      string `xml:"tradeID,attr"`
	TradeDate    string `xml:"tradeDate,attr"`
	Symbol       string `xml:"symbol,attr"`
	Conid        string `xml:"conid,attr"`
	Currency     string `xml:"currency,attr"`
	Quantity     string `xml:"quantity,attr"`
	TradePrice   string `xml:"tradePrice,attr"`
	IBCommission string `xml:"ibCommission,attr"`
	FxRateToBase string `xml:"fxRateToBase,attr"`
}

type xmlCashTransactions struct {
	CashTransactions []xmlCashTransaction `xml:"CashTransaction"`
}

// xmlCashTransaction represents a cash transaction in the IBKR Flex Query XML format.
type xmlCashTransaction struct {
	DateTime     string `xml:"dateTime,attr"`
	Type         string `xml:"type,attr"`
	Currency     string `xml:"currency,attr"`
	Amount       string `xml:"amount,attr"`
	FxRateToBase string `xml:"fxRateToBase,attr"`
}

type xmlOpenPositions struct {
	OpenPositions []xmlOpenPosition `xml:"OpenPosition"`
}

// xmlOpenPosition represents an open position in the IBKR Flex Query XML format.
// Note: IBKR uses "position" (not "quantity") for the held amount.
type xmlOpenPosition struct {
	ReportDate    string `xml:"reportDate,attr"`
	Symbol        string `xml:"symbol,attr"`
	Conid         string `xml:"conid,attr"`
	Currency      string `xml:"currency,attr"`
	Position      string `xml:"position,attr"`
	MarkPrice     string `xml:"markPrice,attr"`
	PositionValue string `xml:"positionValue,attr"`
}

// Parse decodes raw statement XML bytes into a Statement, validating required
// fields and record-level consistency. It is a pure, single-pass
// transformation: fetching the bytes and persisting them are the caller's
// concern.
func Parse(data []byte) (*Statement, error) {
	var response xmlFlexQueryResponse
	if err := xml.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding statement XML: %v", ErrMalformedInput, err)
	}
	statements := response.FlexStatements.Statements
	if len(statements) == 0 {
		return nil, fmt.Errorf("%w: no FlexStatement element", ErrIncompleteStatement)
	}
	if len(statements) > 1 {
		// Multi-account consolidation is out of scope: one statement per run.
		return nil, fmt.Errorf("%w: expected exactly one FlexStatement, got %d", ErrMalformedInput, len(statements))
	}
	return parseStatement(&statements[0])
}

func parseStatement(xmlStatement *xmlFlexStatement) (*Statement, error) {
	// Every section the report type is expected to carry must be present.
	// Empty sections are fine; absent ones mean a truncated or misconfigured export.
	switch {
	case xmlStatement.AccountInformation == nil:
		return nil, fmt.Errorf("%w: AccountInformation section is absent", ErrIncompleteStatement)
	case xmlStatement.EquitySummary == nil:
		return nil, fmt.Errorf("%w: EquitySummaryInBase section is absent", ErrIncompleteStatement)
	case xmlStatement.Trades == nil:
		return nil, fmt.Errorf("%w: Trades section is absent", ErrIncompleteStatement)
	case xmlStatement.CashTransactions == nil:
		return nil, fmt.Errorf("%w: CashTransactions section is absent", ErrIncompleteStatement)
	case xmlStatement.OpenPositions == nil:
		return nil, fmt.Errorf("%w: OpenPositions section is absent", ErrIncompleteStatement)
	}
	fromDate, err := parseRequiredDate("FlexStatement", "fromDate", xmlStatement.FromDate)
	if err != nil {
		return nil, err
	}
	toDate, err := parseRequiredDate("FlexStatement", "toDate", xmlStatement.ToDate)
	if err != nil {
		return nil, err
	}
	if toDate.Before(fromDate) {
		return nil, fmt.Errorf("%w: toDate %v before fromDate %v", ErrMalformedInput, toDate, fromDate)
	}
	accountID := xmlStatement.AccountInformation.AccountID
	if accountID == "" {
		accountID = xmlStatement.AccountID
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: AccountInformation accountId is missing", ErrMalformedInput)
	}
	baseCurrency := xmlStatement.AccountInformation.Currency
	if baseCurrency == "" {
		return nil, fmt.Errorf("%w: AccountInformation currency is missing", ErrMalformedInput)
	}
	statement := &Statement{
		AccountID:    accountID,
		BaseCurrency: baseCurrency,
		FromDate:     fromDate,
		ToDate:       toDate,
	}
	if err := parseNAVPoints(statement, xmlStatement.EquitySummary.Points); err != nil {
		return nil, err
	}
	if err := parseTrades(statement, xmlStatement.Trades.Trades); err != nil {
		return nil, err
	}
	if err := parseCashTransactions(statement, xmlStatement.CashTransactions.CashTransactions); err != nil {
		return nil, err
	}
	if err := parseOpenPositions(statement, xmlStatement.OpenPositions.OpenPositions); err != nil {
		return nil, err
	}
	return statement, nil
}

func parseNAVPoints(statement *Statement, xmlPoints []xmlEquitySummaryPoint) error {
	seenDates := make(map[xtime.Date]bool, len(xmlPoints))
	statement.NAVPoints = make([]NAVPoint, 0, len(xmlPoints))
	for i := range xmlPoints {
		xmlPoint := &xmlPoints[i]
		date, err := parseRequiredDate("EquitySummaryByReportDateInBase", "reportDate", xmlPoint.ReportDate)
		if err != nil {
			return err
		}
		// One NAV per day: a duplicate report date means a corrupted export.
		if seenDates[date] {
			return fmt.Errorf("%w: NAV point for %v reported twice", ErrDuplicateRecord, date)
		}
		seenDates[date] = true
		total, err := parseRequiredDecimal("EquitySummaryByReportDateInBase", "total", xmlPoint.Total)
		if err != nil {
			return err
		}
		statement.NAVPoints = append(statement.NAVPoints, NAVPoint{
			Date:  date,
			Total: total,
		})
	}
	return nil
}

func parseTrades(statement *Statement, xmlTrades []xmlTrade) error {
	seenTradeIDs := make(map[string]bool, len(xmlTrades))
	statement.Trades = make([]Trade, 0, len(xmlTrades))
	for i := range xmlTrades {
		xmlTrade := &xmlTrades[i]
		if xmlTrade.TradeID == "" {
			return fmt.Errorf("%w: trade %d has no tradeID", ErrMalformedInput, i)
		}
		// Statements list each executed trade exactly once; a duplicate
		// indicates a corrupted or concatenated export.
		if seenTradeIDs[xmlTrade.TradeID] {
			return fmt.Errorf("%w: trade %q listed twice", ErrDuplicateRecord, xmlTrade.TradeID)
		}
		seenTradeIDs[xmlTrade.TradeID] = true
		date, err := parseRequiredDate("Trade "+xmlTrade.TradeID, "tradeDate", xmlTrade.TradeDate)
		if err != nil {
			return err
		}
		if date.Before(statement.FromDate) || date.After(statement.ToDate) {
			return fmt.Errorf("%w: trade %q dated %v outside statement period %v..%v",
				ErrMalformedInput, xmlTrade.TradeID, date, statement.FromDate, statement.ToDate)
		}
		if xmlTrade.Symbol == "" {
			return fmt.Errorf("%w: trade %q has no symbol", ErrMalformedInput, xmlTrade.TradeID)
		}
		fxRateToBase, err := checkRecordCurrency(statement, "trade "+xmlTrade.TradeID, xmlTrade.Currency, xmlTrade.FxRateToBase)
		if err != nil {
			return err
		}
		quantity, err := parseRequiredDecimal("Trade "+xmlTrade.TradeID, "quantity", xmlTrade.Quantity)
		if err != nil {
			return err
		}
		price, err := parseRequiredDecimal("Trade "+xmlTrade.TradeID, "tradePrice", xmlTrade.TradePrice)
		if err != nil {
			return err
		}
		// IBKR omits the commission attribute on some asset categories.
		commission, err := parseOptionalDecimal("Trade "+xmlTrade.TradeID, "ibCommission", xmlTrade.IBCommission)
		if err != nil {
			return err
		}
		statement.Trades = append(statement.Trades, Trade{
			TradeID:      xmlTrade.TradeID,
			Date:         date,
			Symbol:       xmlTrade.Symbol,
			Conid:        xmlTrade.Conid,
			Currency:     xmlTrade.Currency,
			Quantity:     quantity,
			Price:        price,
			Commission:   commission,
			FXRateToBase: fxRateToBase,
		})
	}
	return nil
}

func parseCashTransactions(statement *Statement, xmlCashTransactions []xmlCashTransaction) error {
	statement.CashTransactions = make([]CashTransaction, 0, len(xmlCashTransactions))
	for i := range xmlCashTransactions {
		xmlCashTransaction := &xmlCashTransactions[i]
		date, err := parseRequiredDate(fmt.Sprintf("CashTransaction %d", i), "dateTime", xmlCashTransaction.DateTime)
		if err != nil {
			return err
		}
		if date.Before(statement.FromDate) || date.After(statement.ToDate) {
			return fmt.Errorf("%w: cash transaction %d dated %v outside statement period %v..%v",
				ErrMalformedInput, i, date, statement.FromDate, statement.ToDate)
		}
		if xmlCashTransaction.Type == "" {
			return fmt.Errorf("%w: cash transaction %d has no type", ErrMalformedInput, i)
		}
		fxRateToBase, err := checkRecordCurrency(statement, fmt.Sprintf("cash transaction %d", i), xmlCashTransaction.Currency, xmlCashTransaction.FxRateToBase)
		if err != nil {
			return err
		}
		amount, err := parseRequiredDecimal(fmt.Sprintf("CashTransaction %d", i), "amount", xmlCashTransaction.Amount)
		if err != nil {
			return err
		}
		statement.CashTransactions = append(statement.CashTransactions, CashTransaction{
			Date:         date,
			Currency:     xmlCashTransaction.Currency,
			Kind:         classifyCashType(xmlCashTransaction.Type, amount),
			Amount:       amount,
			FXRateToBase: fxRateToBase,
		})
	}
	return nil
}

func parseOpenPositions(statement *Statement, xmlOpenPositions []xmlOpenPosition) error {
	statement.OpenPositions = make([]OpenPosition, 0, len(xmlOpenPositions))
	for i := range xmlOpenPositions {
		xmlOpenPosition := &xmlOpenPositions[i]
		if xmlOpenPosition.Symbol == "" {
			return fmt.Errorf("%w: open position %d has no symbol", ErrMalformedInput, i)
		}
		date, err := parseRequiredDate("OpenPosition "+xmlOpenPosition.Symbol, "reportDate", xmlOpenPosition.ReportDate)
		if err != nil {
			return err
		}
		// Positions are a single period-end snapshot, never a time series.
		if date != statement.ToDate {
			return fmt.Errorf("%w: open position %q reported for %v, want statement end date %v",
				ErrMalformedInput, xmlOpenPosition.Symbol, date, statement.ToDate)
		}
		// Position snapshots carry no FX rate attribute, so a non-base
		// currency position is always unsupported.
		if _, err := checkRecordCurrency(statement, "open position "+xmlOpenPosition.Symbol, xmlOpenPosition.Currency, ""); err != nil {
			return err
		}
		quantity, err := parseRequiredDecimal("OpenPosition "+xmlOpenPosition.Symbol, "position", xmlOpenPosition.Position)
		if err != nil {
			return err
		}
		markPrice, err := parseRequiredDecimal("OpenPosition "+xmlOpenPosition.Symbol, "markPrice", xmlOpenPosition.MarkPrice)
		if err != nil {
			return err
		}
		value, err := parseRequiredDecimal("OpenPosition "+xmlOpenPosition.Symbol, "positionValue", xmlOpenPosition.PositionValue)
		if err != nil {
			return err
		}
		statement.OpenPositions = append(statement.OpenPositions, OpenPosition{
			Date:      date,
			Symbol:    xmlOpenPosition.Symbol,
			Conid:     xmlOpenPosition.Conid,
			Currency:  xmlOpenPosition.Currency,
			Quantity:  quantity,
			MarkPrice: markPrice,
			Value:     value,
		})
	}
	return nil
}

// checkRecordCurrency enforces the no-FX-conversion policy: a record in a
// currency other than the account base currency is only acceptable when it
// carries an explicit FX rate. Returns the parsed rate (zero for base-currency
// records).
func checkRecordCurrency(statement *Statement, record string, currency string, fxRateToBase string) (decimal.Decimal, error) {
	if currency == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s has no currency", ErrMalformedInput, record)
	}
	if currency == statement.BaseCurrency {
		return decimal.Decimal{}, nil
	}
	if fxRateToBase == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is in %s but account base currency is %s and no FX rate is present",
			ErrUnsupportedCurrency, record, currency, statement.BaseCurrency)
	}
	rate, err := decimal.NewFromString(fxRateToBase)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s has unparseable fxRateToBase %q", ErrMalformedInput, record, fxRateToBase)
	}
	return rate, nil
}

// classifyCashType maps an IBKR cash transaction type string onto the closed
// CashKind set. Deposits and withdrawals share a single IBKR type and are
// split by sign.
func classifyCashType(ibkrType string, amount decimal.Decimal) CashKind {
	switch {
	case strings.Contains(ibkrType, "Deposits") || strings.Contains(ibkrType, "Withdrawals"):
		if amount.IsNegative() {
			return CashKindWithdrawal
		}
		return CashKindDeposit
	case strings.Contains(ibkrType, "Dividend"):
		return CashKindDividend
	case strings.Contains(ibkrType, "Interest"):
		return CashKindInterest
	case strings.Contains(ibkrType, "Fee") || strings.Contains(ibkrType, "Commission Adjustment"):
		return CashKindFee
	default:
		return CashKindOther
	}
}

// parseRequiredDate parses a date attribute, accepting the IBKR compact
// yyyyMMdd form, the ISO yyyy-MM-dd form, and the dateTime form with a
// ";HHmmss" suffix.
func parseRequiredDate(record string, attribute string, value string) (xtime.Date, error) {
	if value == "" {
		return xtime.Date{}, fmt.Errorf("%w: %s has no %s", ErrMalformedInput, record, attribute)
	}
	// Strip a time-of-day suffix (e.g., "20190402;093000").
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	if len(value) == 8 {
		// Compact IBKR form: insert separators and fall through to ParseDate.
		value = value[:4] + "-" + value[4:6] + "-" + value[6:]
	}
	date, err := xtime.ParseDate(value)
	if err != nil {
		return xtime.Date{}, fmt.Errorf("%w: %s has unparseable %s %q", ErrMalformedInput, record, attribute, value)
	}
	return date, nil
}

func parseRequiredDecimal(record string, attribute string, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s has no %s", ErrMalformedInput, record, attribute)
	}
	return parseOptionalDecimal(record, attribute, value)
}

func parseOptionalDecimal(record string, attribute string, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, nil
	}
	// IBKR writes thousands separators in some localized exports.
	parsed, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s has unparseable %s %q", ErrMalformedInput, record, attribute, value)
	}
	return parsed, nil
}

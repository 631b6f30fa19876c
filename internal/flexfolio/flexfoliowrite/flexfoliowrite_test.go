// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package flexfoliowrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolionormalize"
	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testReturns = []flexfolionormalize.ReturnPoint{
	{Date: xtime.Date{Year: 2019, Month: 4, Day: 1}, Return: decimal.Decimal{}},
	{Date: xtime.Date{Year: 2019, Month: 4, Day: 2}, Return: decimal.RequireFromString("0.01")},
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	format, err := ParseFormat("csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, format)
	format, err = ParseFormat("Parquet")
	require.NoError(t, err)
	require.Equal(t, FormatParquet, format)
	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}

func TestDatasetFilePath(t *testing.T) {
	t.Parallel()
	require.Equal(t, filepath.Join("out", "returns.csv"), DatasetFilePath("out", "returns", FormatCSV))
	require.Equal(t, filepath.Join("out", "positions.parquet"), DatasetFilePath("out", "positions", FormatParquet))
}

func TestWriteReturnsCSV(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, WriteReturns(filePath, FormatCSV, testReturns))
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "date,return\n2019-04-01,0\n2019-04-02,0.01\n", string(data))
}

func TestWritePositionsCSV(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "positions.csv")
	require.NoError(t, WritePositions(filePath, FormatCSV, []flexfolionormalize.PositionRow{
		{
			Date:        xtime.Date{Year: 2019, Month: 4, Day: 3},
			CanonicalID: "AAPL",
			Value:       decimal.NewFromInt(1505),
		},
		{
			Date:        xtime.Date{Year: 2019, Month: 4, Day: 3},
			CanonicalID: flexfolionormalize.CashRowID,
			Value:       decimal.NewFromInt(98995),
		},
	}))
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "date,canonical_id,value\n2019-04-03,AAPL,1505\n2019-04-03,cash,98995\n", string(data))
}

func TestWriteTransactionsCSV(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, WriteTransactions(filePath, FormatCSV, []flexfolionormalize.TransactionRow{
		{
			Date:        xtime.Date{Year: 2019, Month: 4, Day: 2},
			CanonicalID: "AAPL",
			Quantity:    decimal.NewFromInt(10),
			Price:       decimal.RequireFromString("150.5"),
			TradeID:     "T1",
		},
	}))
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "date,canonical_id,quantity,price,trade_id\n2019-04-02,AAPL,10,150.5,T1\n", string(data))
}

func TestWriteReturnsCSVDeterministic(t *testing.T) {
	t.Parallel()
	tempDirPath := t.TempDir()
	firstPath := filepath.Join(tempDirPath, "first.csv")
	secondPath := filepath.Join(tempDirPath, "second.csv")
	require.NoError(t, WriteReturns(firstPath, FormatCSV, testReturns))
	require.NoError(t, WriteReturns(secondPath, FormatCSV, testReturns))
	first, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	second, err := os.ReadFile(secondPath)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWriteReturnsParquet(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "returns.parquet")
	require.NoError(t, WriteReturns(filePath, FormatParquet, testReturns))
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	// Parquet files start and end with the "PAR1" magic.
	require.GreaterOrEqual(t, len(data), 8)
	require.Equal(t, "PAR1", string(data[:4]))
	require.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()
	err := WriteReturns(filepath.Join(t.TempDir(), "returns.xlsx"), Format("xlsx"), testReturns)
	require.ErrorIs(t, err, ErrWriteFailed)
}

func TestWriteCreateFailure(t *testing.T) {
	t.Parallel()
	err := WriteReturns(filepath.Join(t.TempDir(), "missing", "returns.csv"), FormatCSV, testReturns)
	require.ErrorIs(t, err, ErrWriteFailed)
}

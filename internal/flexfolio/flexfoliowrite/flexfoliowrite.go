// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfoliowrite serializes normalized datasets to tabular files.
//
// Two formats are supported: CSV as the tabular-text format and Parquet as
// the columnar-binary format. The writer performs no transformation: it is
// handed already-normalized rows and only encodes them.
package flexfoliowrite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolionormalize"
	"github.com/parquet-go/parquet-go"
)

// ErrWriteFailed indicates an I/O or encoding failure while serializing a
// dataset. Retrying is the caller's decision.
var ErrWriteFailed = errors.New("write failed")

// Format selects the output file format.
type Format string

const (
	// FormatCSV is the tabular-text format.
	FormatCSV Format = "csv"
	// FormatParquet is the columnar-binary format.
	FormatParquet Format = "parquet"
)

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: csv, parquet", s)
	}
}

// DatasetFilePath returns the output path for a dataset within the directory,
// e.g. "returns.csv" or "transactions.parquet".
func DatasetFilePath(dirPath string, dataset string, format Format) string {
	return filepath.Join(dirPath, dataset+"."+string(format))
}

// returnRow is the Parquet row shape of the Returns dataset.
type returnRow struct {
	Date   string  `parquet:"date"`
	Return float64 `parquet:"return"`
}

// positionRow is the Parquet row shape of the Positions dataset.
type positionRow struct {
	Date        string  `parquet:"date"`
	CanonicalID string  `parquet:"canonical_id"`
	Value       float64 `parquet:"value"`
}

// transactionRow is the Parquet row shape of the Transactions dataset.
type transactionRow struct {
	Date        string  `parquet:"date"`
	CanonicalID string  `parquet:"canonical_id"`
	Quantity    float64 `parquet:"quantity"`
	Price       float64 `parquet:"price"`
	TradeID     string  `parquet:"trade_id"`
}

// WriteReturns serializes the Returns dataset to filePath in the given format.
func WriteReturns(filePath string, format Format, points []flexfolionormalize.ReturnPoint) error {
	switch format {
	case FormatCSV:
		records := make([][]string, 0, len(points)+1)
		records = append(records, []string{"date", "return"})
		for _, point := range points {
			records = append(records, []string{point.Date.String(), point.Return.String()})
		}
		return writeCSVFile(filePath, records)
	case FormatParquet:
		rows := make([]returnRow, len(points))
		for i, point := range points {
			rows[i] = returnRow{
				Date:   point.Date.String(),
				Return: point.Return.InexactFloat64(),
			}
		}
		return writeParquetFile(filePath, rows)
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrWriteFailed, format)
	}
}

// WritePositions serializes the Positions dataset to filePath in the given format.
func WritePositions(filePath string, format Format, positions []flexfolionormalize.PositionRow) error {
	switch format {
	case FormatCSV:
		records := make([][]string, 0, len(positions)+1)
		records = append(records, []string{"date", "canonical_id", "value"})
		for _, position := range positions {
			records = append(records, []string{position.Date.String(), position.CanonicalID, position.Value.String()})
		}
		return writeCSVFile(filePath, records)
	case FormatParquet:
		rows := make([]positionRow, len(positions))
		for i, position := range positions {
			rows[i] = positionRow{
				Date:        position.Date.String(),
				CanonicalID: position.CanonicalID,
				Value:       position.Value.InexactFloat64(),
			}
		}
		return writeParquetFile(filePath, rows)
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrWriteFailed, format)
	}
}

// WriteTransactions serializes the Transactions dataset to filePath in the given format.
func WriteTransactions(filePath string, format Format, transactions []flexfolionormalize.TransactionRow) error {
	switch format {
	case FormatCSV:
		records := make([][]string, 0, len(transactions)+1)
		records = append(records, []string{"date", "canonical_id", "quantity", "price", "trade_id"})
		for _, transaction := range transactions {
			records = append(records, []string{
				transaction.Date.String(),
				transaction.CanonicalID,
				transaction.Quantity.String(),
				transaction.Price.String(),
				transaction.TradeID,
			})
		}
		return writeCSVFile(filePath, records)
	case FormatParquet:
		rows := make([]transactionRow, len(transactions))
		for i, transaction := range transactions {
			rows[i] = transactionRow{
				Date:        transaction.Date.String(),
				CanonicalID: transaction.CanonicalID,
				Quantity:    transaction.Quantity.InexactFloat64(),
				Price:       transaction.Price.InexactFloat64(),
				TradeID:     transaction.TradeID,
			}
		}
		return writeParquetFile(filePath, rows)
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrWriteFailed, format)
	}
}

func writeCSVFile(filePath string, records [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := writeCSV(file, records); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func writeCSV(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.WriteAll(records); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func writeParquetFile[R any](filePath string, rows []R) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := writeParquet(file, rows); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func writeParquet[R any](writer io.Writer, rows []R) error {
	parquetWriter := parquet.NewGenericWriter[R](writer)
	if _, err := parquetWriter.Write(rows); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := parquetWriter.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

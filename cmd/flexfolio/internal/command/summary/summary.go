// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package summary implements the "summary" command.
package summary

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/flexfoliocmd"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolionormalize"
	"github.com/flexfolio/flexfolio/internal/pkg/cliio"
	"github.com/flexfolio/flexfolio/internal/standard/xos"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const (
	// inputFlagName is the flag name for the raw statement file path.
	inputFlagName = "input"
	// formatFlagName is the flag name for the output format.
	formatFlagName = "format"
	// displayPlaces is the decimal places used for table display.
	displayPlaces = 6
)

// NewCommand returns a new summary command that normalizes a saved statement
// and prints the daily return series and period-end positions.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Print daily returns and period-end positions for a saved statement",
		Long: `Print daily returns and period-end positions for a saved statement.

Runs the same pipeline as "flexfolio normalize" but prints to stdout instead
of writing dataset files. The totals row shows the geometrically compounded
return over the whole period.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Input is the raw statement file path.
	Input string
	// Format is the output format, one of table, csv, json.
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Input, inputFlagName, "", "The raw statement file to summarize (required)")
	flagSet.StringVar(&f.Format, formatFlagName, "table", "The output format, one of: table, csv, json")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	if flags.Input == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s is required", inputFlagName)
	}
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentErrorf("--%s: %v", formatFlagName, err)
	}
	inputPath, err := xos.ExpandHome(flags.Input)
	if err != nil {
		return err
	}
	result, statement, err := flexfoliocmd.NormalizeFile(container, inputPath)
	if err != nil {
		return err
	}
	stdout := container.Stdout()
	switch format {
	case cliio.FormatTable:
		fmt.Fprintf(stdout, "account %s, base currency %s, period %s to %s\n\n",
			statement.AccountID,
			statement.BaseCurrency,
			statement.FromDate,
			statement.ToDate,
		)
		if err := cliio.WriteTableWithTotals(
			stdout,
			[]string{"DATE", "NAV", "RETURN"},
			dailyRows(result),
			[]string{"TOTAL", "", periodReturn(result).StringFixed(displayPlaces)},
		); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
		return cliio.WriteTable(
			stdout,
			[]string{"INSTRUMENT", "VALUE"},
			endPositionRows(result),
		)
	case cliio.FormatCSV:
		records := [][]string{{"date", "nav", "return"}}
		for _, row := range dailyRows(result) {
			records = append(records, row)
		}
		return cliio.WriteCSVRecords(stdout, records)
	case cliio.FormatJSON:
		type dayObject struct {
			Date   string `json:"date"`
			NAV    string `json:"nav"`
			Return string `json:"return"`
		}
		objects := make([]dayObject, len(result.Returns))
		for i, point := range result.Returns {
			objects[i] = dayObject{
				Date:   point.Date.String(),
				NAV:    result.NAVs[i].String(),
				Return: point.Return.String(),
			}
		}
		return cliio.WriteJSON(stdout, objects...)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// dailyRows renders the aligned NAV and return series as string rows.
func dailyRows(result *flexfolionormalize.Result) [][]string {
	rows := make([][]string, len(result.Returns))
	for i, point := range result.Returns {
		rows[i] = []string{
			point.Date.String(),
			result.NAVs[i].String(),
			point.Return.StringFixed(displayPlaces),
		}
	}
	return rows
}

// periodReturn compounds the daily returns geometrically over the period.
func periodReturn(result *flexfolionormalize.Result) decimal.Decimal {
	one := decimal.NewFromInt(1)
	compounded := one
	for _, point := range result.Returns {
		compounded = compounded.Mul(one.Add(point.Return))
	}
	return compounded.Sub(one)
}

// endPositionRows renders the period-end position snapshot, including the
// synthetic cash row.
func endPositionRows(result *flexfolionormalize.Result) [][]string {
	if len(result.Returns) == 0 {
		return nil
	}
	endDate := result.Returns[len(result.Returns)-1].Date
	var rows [][]string
	for _, position := range result.Positions {
		if position.Date != endDate {
			continue
		}
		rows = append(rows, []string{position.CanonicalID, position.Value.String()})
	}
	return rows
}

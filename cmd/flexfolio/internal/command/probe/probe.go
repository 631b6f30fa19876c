// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package probe implements the "probe" command.
package probe

import (
	"context"
	"fmt"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/flexfoliocmd"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliostatement"
	"github.com/flexfolio/flexfolio/internal/pkg/cliio"
	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	// queryIDFlagName is the flag name for the Flex Query ID override.
	queryIDFlagName = "query-id"
	// fromFlagName is the flag name for the period start override.
	fromFlagName = "from"
	// toFlagName is the flag name for the period end override.
	toFlagName = "to"
)

// NewCommand returns a new probe command that fetches and parses a statement
// without writing anything, to verify credentials and query configuration.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Fetch and parse a statement without saving it",
		Long: `Fetch and parse a statement without saving it.

Useful for checking that the token, query ID, and Flex Query section
configuration are correct before setting up a recurring fetch. Prints the
statement period and a per-section record count.`,
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
	// QueryID overrides the configured Flex Query ID.
	QueryID string
	// From is the optional period start override (YYYY-MM-DD).
	From string
	// To is the optional period end override (YYYY-MM-DD).
	To string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.QueryID, queryIDFlagName, "", "The Flex Query ID (defaults to ibkr.query_id from the config file)")
	flagSet.StringVar(&f.From, fromFlagName, "", "Override the query period start date (YYYY-MM-DD)")
	flagSet.StringVar(&f.To, toFlagName, "", "Override the query period end date (YYYY-MM-DD)")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	fromDate, toDate, err := parseDateRange(flags.From, flags.To)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	client, token, queryID, err := flexfoliocmd.NewFlexQueryClient(container, flags.QueryID)
	if err != nil {
		return err
	}
	data, err := client.Download(ctx, token, queryID, fromDate, toDate)
	if err != nil {
		return err
	}
	statement, err := flexfoliostatement.Parse(data)
	if err != nil {
		return fmt.Errorf("statement fetched but not parseable: %w", err)
	}
	stdout := container.Stdout()
	fmt.Fprintf(stdout, "account %s, base currency %s, period %s to %s\n\n",
		statement.AccountID,
		statement.BaseCurrency,
		statement.FromDate,
		statement.ToDate,
	)
	return cliio.WriteTable(
		stdout,
		[]string{"SECTION", "RECORDS"},
		[][]string{
			{"trades", strconv.Itoa(len(statement.Trades))},
			{"cash_transactions", strconv.Itoa(len(statement.CashTransactions))},
			{"nav_points", strconv.Itoa(len(statement.NAVPoints))},
			{"open_positions", strconv.Itoa(len(statement.OpenPositions))},
		},
	)
}

// parseDateRange parses the optional from/to flags. If one is set, both must be set.
func parseDateRange(from string, to string) (xtime.Date, xtime.Date, error) {
	if (from == "") != (to == "") {
		return xtime.Date{}, xtime.Date{}, fmt.Errorf("--%s and --%s must be set together", fromFlagName, toFlagName)
	}
	if from == "" {
		return xtime.Date{}, xtime.Date{}, nil
	}
	fromDate, err := xtime.ParseDate(from)
	if err != nil {
		return xtime.Date{}, xtime.Date{}, fmt.Errorf("invalid --%s: %v", fromFlagName, err)
	}
	toDate, err := xtime.ParseDate(to)
	if err != nil {
		return xtime.Date{}, xtime.Date{}, fmt.Errorf("invalid --%s: %v", toFlagName, err)
	}
	if toDate.Before(fromDate) {
		return xtime.Date{}, xtime.Date{}, fmt.Errorf("--%s is after --%s", fromFlagName, toFlagName)
	}
	return fromDate, toDate, nil
}

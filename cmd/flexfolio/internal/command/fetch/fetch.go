// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package fetch implements the "fetch" command.
package fetch

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/flexfoliocmd"
	"github.com/flexfolio/flexfolio/internal/standard/xos"
	"github.com/flexfolio/flexfolio/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	// queryIDFlagName is the flag name for the Flex Query ID override.
	queryIDFlagName = "query-id"
	// outputFlagName is the flag name for the output file path.
	outputFlagName = "output"
	// fromFlagName is the flag name for the period start override.
	fromFlagName = "from"
	// toFlagName is the flag name for the period end override.
	toFlagName = "to"
)

// NewCommand returns a new fetch command that downloads a raw Flex statement
// and saves it verbatim.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Fetch a raw Flex statement and save it to a file",
		Long: `Fetch a raw Flex statement and save it to a file.

The statement XML is saved byte-for-byte as returned by the reporting service,
so the saved file can be normalized later (or re-normalized with different
policies) without fetching again.

The Flex Web Service token is read from the FLEXFOLIO_TOKEN environment variable.`,
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
	// Output is the file path to save the raw statement to.
	Output string
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
	flagSet.StringVar(&f.Output, outputFlagName, "", "The file path to save the raw statement to (required)")
	flagSet.StringVar(&f.From, fromFlagName, "", "Override the query period start date (YYYY-MM-DD)")
	flagSet.StringVar(&f.To, toFlagName, "", "Override the query period end date (YYYY-MM-DD)")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	if flags.Output == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s is required", outputFlagName)
	}
	fromDate, toDate, err := parseDateRange(flags.From, flags.To)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	outputPath, err := xos.ExpandHome(flags.Output)
	if err != nil {
		return err
	}
	client, token, queryID, err := flexfoliocmd.NewFlexQueryClient(container, flags.QueryID)
	if err != nil {
		return err
	}
	logger := container.Logger()
	logger.Info("fetching statement", "query_id", queryID)
	data, err := client.Download(ctx, token, queryID, fromDate, toDate)
	if err != nil {
		return err
	}
	// Atomic write: a crash mid-save must not leave a truncated statement
	// that a later normalize run would reject.
	if err := xos.WriteFileAtomic(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("saving statement: %w", err)
	}
	logger.Info("statement saved", "path", outputPath, "bytes", len(data))
	return nil
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

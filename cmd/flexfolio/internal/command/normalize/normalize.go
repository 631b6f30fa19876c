// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package normalize implements the "normalize" command.
package normalize

import (
	"context"
	"fmt"
	"os"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/flexfoliocmd"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliowrite"
	"github.com/flexfolio/flexfolio/internal/standard/xos"
	"github.com/spf13/pflag"
)

const (
	// inputFlagName is the flag name for the raw statement file path.
	inputFlagName = "input"
	// outputDirFlagName is the flag name for the dataset output directory.
	outputDirFlagName = "output-dir"
	// outputFormatFlagName is the flag name for the dataset file format.
	outputFormatFlagName = "output-format"
)

// NewCommand returns a new normalize command that parses a saved raw statement
// and writes the returns, positions, and transactions datasets.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Normalize a saved Flex statement into dataset files",
		Long: `Normalize a saved Flex statement into dataset files.

Reads a raw statement saved by "flexfolio fetch", validates and parses it, and
writes three files into the output directory: returns, positions, and
transactions. Output is deterministic, repeated runs over the same statement
produce identical files.`,
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
	// OutputDir is the directory to write the dataset files into.
	OutputDir string
	// OutputFormat is the dataset file format, "csv" or "parquet".
	OutputFormat string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Input, inputFlagName, "", "The raw statement file to normalize (required)")
	flagSet.StringVar(&f.OutputDir, outputDirFlagName, "", "The directory to write dataset files into (required)")
	flagSet.StringVar(&f.OutputFormat, outputFormatFlagName, "csv", "The dataset file format, one of: csv, parquet")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	if flags.Input == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s is required", inputFlagName)
	}
	if flags.OutputDir == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s is required", outputDirFlagName)
	}
	format, err := flexfoliowrite.ParseFormat(flags.OutputFormat)
	if err != nil {
		return appcmd.NewInvalidArgumentErrorf("--%s: %v", outputFormatFlagName, err)
	}
	inputPath, err := xos.ExpandHome(flags.Input)
	if err != nil {
		return err
	}
	outputDirPath, err := xos.ExpandHome(flags.OutputDir)
	if err != nil {
		return err
	}
	result, _, err := flexfoliocmd.NormalizeFile(container, inputPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDirPath, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	logger := container.Logger()
	returnsPath := flexfoliowrite.DatasetFilePath(outputDirPath, "returns", format)
	if err := flexfoliowrite.WriteReturns(returnsPath, format, result.Returns); err != nil {
		return err
	}
	logger.Info("dataset written", "path", returnsPath, "rows", len(result.Returns))
	positionsPath := flexfoliowrite.DatasetFilePath(outputDirPath, "positions", format)
	if err := flexfoliowrite.WritePositions(positionsPath, format, result.Positions); err != nil {
		return err
	}
	logger.Info("dataset written", "path", positionsPath, "rows", len(result.Positions))
	transactionsPath := flexfoliowrite.DatasetFilePath(outputDirPath, "transactions", format)
	if err := flexfoliowrite.WriteTransactions(transactionsPath, format, result.Transactions); err != nil {
		return err
	}
	logger.Info("dataset written", "path", transactionsPath, "rows", len(result.Transactions))
	return nil
}

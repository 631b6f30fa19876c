// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfoliocmd provides shared wiring for flexfolio commands:
// reading the config, getting the Flex Web Service token, constructing the
// fetch client, and running the parse/normalize pipeline on a saved statement.
package flexfoliocmd

import (
	"errors"
	"fmt"
	"os"

	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliocalendar"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolioconfig"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolioinstrument"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolionormalize"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliostatement"
	"github.com/flexfolio/flexfolio/internal/pkg/flexquery"
)

// tokenEnvVar is the environment variable name for the Flex Web Service token.
const tokenEnvVar = "FLEXFOLIO_TOKEN"

// NewFlexQueryClient constructs a Flex Query client from the appext container
// and returns it together with the token and the configured query ID.
//
// The token comes from the FLEXFOLIO_TOKEN environment variable via the app
// container; commands never read credentials from flags or files. The
// queryIDFlag, when non-empty, overrides the configured query ID.
func NewFlexQueryClient(container appext.Container, queryIDFlag string) (flexquery.Client, string, string, error) {
	config, err := flexfolioconfig.ReadConfig(container.ConfigDirPath())
	if err != nil {
		return nil, "", "", err
	}
	token := container.Env(tokenEnvVar)
	if token == "" {
		return nil, "", "", errors.New("FLEXFOLIO_TOKEN environment variable is required, set it to your IBKR Flex Web Service token (see \"flexfolio --help\" for details)")
	}
	queryID := queryIDFlag
	if queryID == "" {
		queryID = config.IBKRQueryID
	}
	if queryID == "" {
		return nil, "", "", errors.New("no query ID: pass --query-id or set ibkr.query_id in the config file (run \"flexfolio config init\")")
	}
	return flexquery.NewClient(container.Logger()), token, queryID, nil
}

// NormalizeFile reads a previously saved raw statement, parses it, and runs
// the normalizer with the configured fill policies. The statement is returned
// alongside the result for commands that display statement metadata.
func NormalizeFile(container appext.Container, inputPath string) (*flexfolionormalize.Result, *flexfoliostatement.Statement, error) {
	config, err := flexfolioconfig.ReadConfig(container.ConfigDirPath())
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading statement file: %w", err)
	}
	statement, err := flexfoliostatement.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing statement %s: %w", inputPath, err)
	}
	logger := container.Logger()
	logger.Info("statement parsed",
		"account", statement.AccountID,
		"from", statement.FromDate,
		"to", statement.ToDate,
		"trades", len(statement.Trades),
		"cash_transactions", len(statement.CashTransactions),
		"nav_points", len(statement.NAVPoints),
		"open_positions", len(statement.OpenPositions),
	)
	// The resolver is scoped to this run; canonical IDs never leak across statements.
	resolver := flexfolioinstrument.NewResolver()
	aligner := flexfoliocalendar.NewAligner(statement.FromDate, statement.ToDate, config.NAVFill)
	result, err := flexfolionormalize.Normalize(
		statement,
		resolver,
		aligner,
		flexfolionormalize.WithPositionFill(config.PositionFill),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("normalizing statement %s: %w", inputPath, err)
	}
	logger.Info("statement normalized",
		"days", len(result.Returns),
		"position_rows", len(result.Positions),
		"transactions", len(result.Transactions),
	)
	return result, statement, nil
}

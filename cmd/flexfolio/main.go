// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/command/config"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/command/fetch"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/command/normalize"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/command/probe"
	"github.com/flexfolio/flexfolio/cmd/flexfolio/internal/command/summary"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("flexfolio"))
}

// newRootCommand creates the root flexfolio command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Normalize broker Flex statements into returns, positions, and transactions",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			fetch.NewCommand("fetch", builder),
			normalize.NewCommand("normalize", builder),
			probe.NewCommand("probe", builder),
			summary.NewCommand("summary", builder),
		},
	}
}

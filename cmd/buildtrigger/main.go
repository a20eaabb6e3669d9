/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements buildtrigger, a service that decides when CI builds
// should run for the branches, pull requests and tags of GitHub repositories.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "buildtrigger: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "buildtrigger",
		Short:         "Decide when CI builds run for repository changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "trigger configuration file (overrides CONFIG_PATH)")

	root.AddCommand(
		newServeCommand(&configPath),
		newStatusCommand(&configPath),
		newForgetCommand(&configPath),
		newSchemaCommand(),
	)
	return root
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/reconciler"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func newForgetCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <trigger-id> <branch|pull_request|tag> <key>",
		Short: "Drop the recorded state of one entity so the next pass sees it as new",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			env, err := loadEnv(ctx, *configPath)
			if err != nil {
				return err
			}
			triggers, closer, err := env.triggers(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			for _, t := range triggers {
				if t.ID != args[0] {
					continue
				}
				// Forget only touches state; no remote client is needed.
				if err := reconciler.New(t, nil).Forget(ctx, kind, args[2]); err != nil {
					return err
				}
				clog.InfoContextf(ctx, "Forgot %s %q of trigger %s", kind, args[2], t.ID)
				return nil
			}
			return fmt.Errorf("no trigger with id %q", args[0])
		},
	}
}

func parseKind(s string) (entity.Kind, error) {
	for _, k := range entity.Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

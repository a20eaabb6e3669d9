/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func newStatusCommand(configPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status [trigger-id...]",
		Short: "Show the recorded state of triggers",
		Long: `Show the entities each trigger last observed, read from the configured
state backend. Pass trigger ids to limit the output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := loadEnv(ctx, *configPath)
			if err != nil {
				return err
			}
			triggers, closer, err := env.triggers(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			statuses, err := collectStatus(ctx, selectTriggers(triggers, args), nil)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			case "table":
				return renderStatus(cmd.OutOrStdout(), statuses)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

func selectTriggers(triggers []*trigger.Trigger, ids []string) []*trigger.Trigger {
	if len(ids) == 0 {
		return triggers
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*trigger.Trigger
	for _, t := range triggers {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

type statusRow struct {
	trigger, kind, key, sha, detail string
}

func statusRows(statuses []trigger.Status) [][]string {
	var rows []statusRow
	for _, st := range statuses {
		var these []statusRow
		for k, b := range st.Branches {
			these = append(these, statusRow{st.ID, entity.KindBranch.String(), k, b.SHA, ""})
		}
		for k, pr := range st.PullRequests {
			these = append(these, statusRow{st.ID, entity.KindPullRequest.String(), k, pr.SHA, pr.State + " " + strconv.Quote(pr.Title)})
		}
		for k, tg := range st.Tags {
			these = append(these, statusRow{st.ID, entity.KindTag.String(), k, tg.SHA, ""})
		}
		sort.Slice(these, func(i, j int) bool {
			if these[i].kind != these[j].kind {
				return these[i].kind < these[j].kind
			}
			return these[i].key < these[j].key
		})
		rows = append(rows, these...)
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		sha := r.sha
		if len(sha) > 12 {
			sha = sha[:12]
		}
		out = append(out, []string{r.trigger, r.kind, r.key, sha, r.detail})
	}
	return out
}

func renderStatus(w io.Writer, statuses []trigger.Status) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Trigger", "Kind", "Key", "SHA", "Detail"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleMarkdown)}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
	for _, row := range statusRows(statuses) {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// Copyright 2024 The gitops-promote Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history contains the command for listing past promotions.
package history

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdutil "github.com/ido83/gitops-promote/commands/util"
	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/promote"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:   "history [APP]",
		Args:  cobra.MaximumNArgs(1),
		Short: "List past promotions recorded in the repository history",
		Long: `Scan the commit log of the environment directory for the promotion
commit-message convention and print the audit trail, newest first. Commits
made outside the promotion workflow are ignored.`,
		RunE: r.runE,
	}
	r.Command = c
	r.repo.AddTo(c.Flags())
	c.Flags().BoolVar(&r.allApps, "all", false,
		"include promotions of every application, not just the selected one")
	return r
}

// NewCommand returns the history cobra command.
func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	repo    cmdutil.RepoFlags
	allApps bool
}

type auditRow struct {
	commit string
	time   string
	entry  promote.AuditEntry
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdhistory.runE"
	runner, err := r.repo.Runner()
	if err != nil {
		return errors.E(op, err)
	}

	entries, err := runner.Log(r.ctx, r.repo.EnvDir)
	if err != nil {
		return errors.E(op, err)
	}

	app := r.repo.ResolveApp(args)
	var rows []auditRow
	for _, e := range entries {
		parsed, ok := promote.ParseCommitMessage(e.Subject)
		if !ok {
			continue
		}
		if !r.allApps && parsed.App != app {
			continue
		}
		rows = append(rows, auditRow{commit: e.SHA, time: e.Time, entry: parsed})
	}

	if len(rows) == 0 {
		fmt.Fprintf(c.OutOrStdout(), "no promotions found\n")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.OutOrStdout())
	t.AppendHeader(table.Row{"COMMIT", "TIME", "APP", "PROMOTION", "TAG", "ANCHOR"})
	for _, row := range rows {
		t.AppendRow([]interface{}{
			row.commit,
			row.time,
			row.entry.App,
			fmt.Sprintf("%s->%s", row.entry.FromEnv, row.entry.ToEnv),
			row.entry.Tag,
			row.entry.AnchorSHA,
		})
	}
	t.AppendSeparator()
	t.Render()
	return nil
}

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

// Package status contains the command for inspecting environment records.
package status

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	cmdutil "github.com/ido83/gitops-promote/commands/util"
	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/record"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:   "status [APP]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Show every environment's record for an application",
		Long: `Walk the environment directory and print, per environment, the deployed
image reference and the promotion anchor recorded for the application.`,
		RunE: r.runE,
	}
	r.Command = c
	r.repo.AddTo(c.Flags())
	c.Flags().StringVarP(&r.output, "output", "o", "table",
		"output format, one of: table, yaml")
	return r
}

// NewCommand returns the status cobra command.
func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	repo   cmdutil.RepoFlags
	output string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdstatus.runE"
	resolver, err := r.repo.Resolver()
	if err != nil {
		return errors.E(op, err)
	}

	app := r.repo.ResolveApp(args)
	envs, err := resolver.Environments(app)
	if err != nil {
		return errors.E(op, err)
	}
	if len(envs) == 0 {
		return errors.E(op, errors.RecordNotFound,
			fmt.Errorf("no environment has a record for app %q", app))
	}

	summaries := make([]record.Summary, 0, len(envs))
	for _, env := range envs {
		rec, err := resolver.Resolve(env, app)
		if err != nil {
			return errors.E(op, err)
		}
		s, err := rec.Summarize(app, env)
		if err != nil {
			return errors.E(op, err)
		}
		summaries = append(summaries, s)
	}

	switch r.output {
	case "table":
		renderSummariesAsTable(c, summaries)
		return nil
	case "yaml":
		b, err := yaml.Marshal(summaries)
		if err != nil {
			return errors.E(op, err)
		}
		fmt.Fprint(c.OutOrStdout(), string(b))
		return nil
	default:
		return errors.E(op, errors.InvalidParam,
			fmt.Errorf("unknown output format %q", r.output))
	}
}

func renderSummariesAsTable(cmd *cobra.Command, summaries []record.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ENV", "IMAGE", "TAG", "ANCHOR", "FROM", "PROMOTED AT"})
	for _, s := range summaries {
		anchor := s.Anchor.GitSHA
		if anchor == "" {
			anchor = "-"
		}
		from := s.Anchor.FromEnv
		if from == "" {
			from = "-"
		}
		promotedAt := s.Anchor.PromotedAt
		if promotedAt == "" {
			promotedAt = "-"
		}
		t.AppendRow([]interface{}{
			s.Environment,
			s.Repository,
			s.Tag,
			anchor,
			from,
			promotedAt,
		})
	}
	t.AppendSeparator()
	t.Render()
}

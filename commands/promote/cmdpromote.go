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

// Package promote contains the promotion command. It is mounted as the root
// command, so invoking the binary with two environment names runs a
// promotion directly.
package promote

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/ido83/gitops-promote/commands/util"
	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/promote"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, name string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:   name + " FROM_ENV TO_ENV [APP]",
		Short: "Promote an application's image reference to the next environment",
		Long: `Copy the image reference committed for FROM_ENV into TO_ENV's record and
anchor it to the git revision that last modified the source record.

The promotion refuses to run when the source record has uncommitted changes,
or when FROM_ENV is not the root environment and was never itself promoted
into through this workflow. On success exactly one commit touching only the
target record is created and pushed.`,
		Example: `  # promote the default application from dev to staging
  ` + name + ` dev staging

  # promote a named application to prod
  ` + name + ` staging prod checkout-service`,
		// The command doubles as the root with subcommands attached, so
		// arg-count validation happens in preRunE rather than via Args.
		Args:    cobra.ArbitraryArgs,
		RunE:    r.runE,
		PreRunE: r.preRunE,
	}
	r.Command = c
	r.repo.AddTo(c.Flags())
	c.Flags().StringVar(&r.rootEnv, "root-env", cmdutil.DefaultRootEnv,
		"the chain's first environment, exempt from the chain-integrity guard")
	c.Flags().StringVar(&r.remote, "remote", "origin",
		"git remote the promotion commit is pushed to")
	c.Flags().StringVar(&r.branch, "branch", "",
		"branch to push; defaults to the currently checked-out branch")
	return r
}

// NewCommand returns the promote cobra command.
func NewCommand(ctx context.Context, name string) *cobra.Command {
	return NewRunner(ctx, name).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	repo    cmdutil.RepoFlags
	rootEnv string
	remote  string
	branch  string

	engine promote.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdpromote.preRunE"
	if len(args) < 2 || len(args) > 3 {
		return errors.E(op, errors.InvalidParam,
			fmt.Errorf("accepts between 2 and 3 args, received %d", len(args)))
	}

	resolver, err := r.repo.Resolver()
	if err != nil {
		return errors.E(op, err)
	}
	runner, err := r.repo.Runner()
	if err != nil {
		return errors.E(op, err)
	}

	r.engine = promote.Command{
		FromEnv:  args[0],
		ToEnv:    args[1],
		App:      r.repo.ResolveApp(args[2:]),
		RootEnv:  r.rootEnv,
		Resolver: resolver,
		// an empty branch is resolved by GitVCS at publish time, after
		// the records have been located
		VCS: &promote.GitVCS{
			Runner: runner,
			Remote: r.remote,
			Branch: r.branch,
		},
	}
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdpromote.runE"
	result, err := r.engine.Run(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}

	fmt.Fprintf(c.OutOrStdout(), "%s\n", result.Message)
	return nil
}

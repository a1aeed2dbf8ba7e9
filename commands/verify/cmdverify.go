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

// Package verify contains the command for auditing the promotion chain.
package verify

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdutil "github.com/ido83/gitops-promote/commands/util"
	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/promote"
	"github.com/ido83/gitops-promote/pkg/printer"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:   "verify [APP]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Check the anchor chain of every environment record",
		Long: `Verify that each non-root environment's promotion anchor references a
commit that actually modified the record of the environment it was promoted
from, and that no environment in the chain is missing an anchor. Exits
non-zero when the chain is broken.`,
		RunE: r.runE,
	}
	r.Command = c
	r.repo.AddTo(c.Flags())
	c.Flags().StringVar(&r.rootEnv, "root-env", cmdutil.DefaultRootEnv,
		"the chain's first environment, allowed to have no anchor")
	return r
}

// NewCommand returns the verify cobra command.
func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	repo    cmdutil.RepoFlags
	rootEnv string
}

func (r *Runner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdverify.runE"
	resolver, err := r.repo.Resolver()
	if err != nil {
		return errors.E(op, err)
	}
	runner, err := r.repo.Runner()
	if err != nil {
		return errors.E(op, err)
	}

	app := r.repo.ResolveApp(args)
	violations, err := promote.Verifier{
		App:      app,
		RootEnv:  r.rootEnv,
		Resolver: resolver,
		Runner:   runner,
	}.Run(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}

	pr := printer.FromContextOrDie(r.ctx)
	if len(violations) == 0 {
		pr.Printf("promotion chain for %q is intact\n", app)
		return nil
	}

	for _, v := range violations {
		fmt.Fprintf(c.ErrOrStderr(), "%s: %s: %s\n", v.Env, v.Record, v.Reason)
	}
	return errors.E(op, errors.BrokenChain,
		fmt.Errorf("%d violation(s) found in the promotion chain for %q", len(violations), app))
}

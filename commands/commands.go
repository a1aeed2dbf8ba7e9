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

package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ido83/gitops-promote/commands/history"
	"github.com/ido83/gitops-promote/commands/status"
	"github.com/ido83/gitops-promote/commands/verify"
	"github.com/ido83/gitops-promote/internal/util/cmdutil"
)

// GetPromoteCommands returns the set of subcommands to be registered on the
// root command.
func GetPromoteCommands(ctx context.Context, name string) []*cobra.Command {
	c := []*cobra.Command{
		status.NewCommand(ctx, name),
		history.NewCommand(ctx, name),
		verify.NewCommand(ctx, name),
	}

	// apply cross-cutting concerns to commands
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand will modify commands to be consistent, e.g. silencing
// errors so they are reported once by main.
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true

		// check if stack printing is on
		if cmd.RunE != nil {
			fn := cmd.RunE
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				return cmdutil.HandleError(cmd, fn(cmd, args))
			}
		}
		NormalizeCommand(cmd.Commands()...)
	}
}

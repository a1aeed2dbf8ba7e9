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

// Package run builds the CLI command tree.
package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ido83/gitops-promote/commands"
	promotecmd "github.com/ido83/gitops-promote/commands/promote"
	"github.com/ido83/gitops-promote/internal/util/cmdutil"
	"github.com/ido83/gitops-promote/pkg/printer"
)

// version is overridden at build time.
var version = "dev"

// GetMain returns the root command of the promote CLI.
func GetMain(ctx context.Context) *cobra.Command {
	// wire the global printer
	pr := printer.New(os.Stdout, os.Stderr)

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	cmd := promotecmd.NewCommand(ctx, "promote")
	cmd.SilenceUsage = true
	// We handle all errors in main after return from cobra so we can
	// adjust the error message coming from libraries
	cmd.SilenceErrors = true
	rootRunE := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmdutil.HandleError(cmd, rootRunE(cmd, args))
	}

	klog.InitFlags(flag.CommandLine)
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	// help and documentation
	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetPromoteCommands(ctx, "promote")...)

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintf(os.Stderr, "promote requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	cmd.AddCommand(versionCmd)
	return cmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}

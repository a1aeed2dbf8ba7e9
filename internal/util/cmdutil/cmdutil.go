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

// Package cmdutil holds cross-cutting helpers for the cobra commands.
package cmdutil

import (
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/spf13/cobra"
)

const (
	// StackTraceOnErrors is the environment variable that enables stack
	// traces on failure without passing --stack-trace.
	StackTraceOnErrors = "PROMOTE_STACK_TRACE_ON_ERRORS"
	trueString         = "true"
)

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

// ExitOnError if true, will cause commands to call os.Exit instead of
// returning an error. Used for skipping printing usage on failure.
var ExitOnError bool

// PrintErrorStacktrace reports whether failures should carry stack traces.
func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	return StackOnError || e == trueString || e == "1"
}

// HandleError prints err to the command's error stream and, when
// ExitOnError is set, terminates the process.
func HandleError(c *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if PrintErrorStacktrace() {
		var wrapped *goerrors.Error
		if !goerrors.As(err, &wrapped) {
			wrapped = goerrors.Wrap(err, 1)
		}
		fmt.Fprintf(os.Stderr, "%s", wrapped.Stack())
	}

	if ExitOnError {
		fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
	return err
}

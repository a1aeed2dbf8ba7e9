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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ido83/gitops-promote/internal/errors/resolver"
	"github.com/ido83/gitops-promote/run"
)

func main() {
	ctx := context.Background()

	cmd := run.GetMain(ctx)
	if err := cmd.Execute(); err != nil {
		if rr, found := resolver.ResolveError(err); found {
			fmt.Fprintf(os.Stderr, "%s\n", rr.Message)
			os.Exit(rr.ExitCode)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

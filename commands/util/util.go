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

// Package util holds flag plumbing shared by the promote commands.
package util

import (
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/gitutil"
	"github.com/ido83/gitops-promote/internal/record"
)

const (
	// DefaultEnvDir is the repository directory holding one subdirectory
	// per environment.
	DefaultEnvDir = "envs"

	// DefaultApp is the application promoted when no name is given on the
	// command line.
	DefaultApp = "demo-app"

	// DefaultRootEnv is the first environment in the promotion chain. Its
	// record is seeded by CI, so it is exempt from the chain guard.
	DefaultRootEnv = "dev"
)

// RepoFlags are the flags locating the configuration repository and the
// application, shared by every command.
type RepoFlags struct {
	Dir    string
	EnvDir string
	App    string
}

// AddTo registers the repository flags on the flag set.
func (f *RepoFlags) AddTo(fs *pflag.FlagSet) {
	fs.StringVar(&f.Dir, "dir", ".",
		"path to the configuration repository")
	fs.StringVar(&f.EnvDir, "env-dir", DefaultEnvDir,
		"directory under the repository root holding the environment records")
	fs.StringVar(&f.App, "app", DefaultApp,
		"application name used when none is given as an argument")
}

// Resolver builds the record resolver for the configured repository root.
func (f *RepoFlags) Resolver() (record.Resolver, error) {
	const op errors.Op = "util.Resolver"
	abs, err := filepath.Abs(f.Dir)
	if err != nil {
		return record.Resolver{}, errors.E(op, errors.InvalidParam, err)
	}
	return record.Resolver{
		RepoRoot: abs,
		EnvDir:   f.EnvDir,
	}, nil
}

// Runner builds a git runner rooted at the configured repository.
func (f *RepoFlags) Runner() (*gitutil.GitLocalRunner, error) {
	const op errors.Op = "util.Runner"
	abs, err := filepath.Abs(f.Dir)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	return gitutil.NewLocalGitRunner(abs)
}

// ResolveApp picks the application name from the trailing positional
// argument, falling back to the --app flag.
func (f *RepoFlags) ResolveApp(args []string) string {
	if len(args) > 0 && args[len(args)-1] != "" {
		return args[len(args)-1]
	}
	return f.App
}

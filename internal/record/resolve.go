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

package record

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/types"
)

// Resolver maps an (application, environment) pair to the location of its
// configuration record inside the repository.
//
// The layout convention is <RepoRoot>/<EnvDir>/<env>/<app>/values.yaml.
// Environment names are not validated against a fixed set; resolution fails
// only when the computed path does not exist.
type Resolver struct {
	// RepoRoot is the absolute path of the configuration repository.
	RepoRoot string

	// EnvDir is the directory under RepoRoot that holds one subdirectory
	// per environment.
	EnvDir string
}

// RepoPath returns the record path for (env, app) relative to the
// repository root, slash-separated as git expects.
func (r Resolver) RepoPath(env, app string) string {
	return path.Join(r.EnvDir, env, app, FileName)
}

// AbsPath returns the absolute on-disk record path for (env, app).
func (r Resolver) AbsPath(env, app string) types.UniquePath {
	return types.UniquePath(filepath.Join(r.RepoRoot, filepath.FromSlash(r.RepoPath(env, app))))
}

// Resolve validates that the record for (env, app) exists on disk and
// returns its location. This runs before any git operation so a missing
// record fails fast.
func (r Resolver) Resolve(env, app string) (*Record, error) {
	const op errors.Op = "record.Resolve"
	if env == "" {
		return nil, errors.E(op, errors.MissingParam, "environment name must not be empty")
	}
	if app == "" {
		return nil, errors.E(op, errors.MissingParam, "application name must not be empty")
	}

	abs := r.AbsPath(env, app)
	if _, err := os.Stat(string(abs)); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, abs, errors.RecordNotFound,
				fmt.Errorf("no record for app %q in environment %q", app, env))
		}
		return nil, errors.E(op, abs, err)
	}
	return Load(abs, r.RepoPath(env, app))
}

// Environments lists the environment names that have a record for app,
// sorted for stable output.
func (r Resolver) Environments(app string) ([]string, error) {
	const op errors.Op = "record.Environments"
	entries, err := os.ReadDir(filepath.Join(r.RepoRoot, r.EnvDir))
	if err != nil {
		return nil, errors.E(op, errors.RecordNotFound,
			fmt.Errorf("unable to read environment directory %q: %w", r.EnvDir, err))
	}

	var envs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(string(r.AbsPath(e.Name(), app))); err == nil {
			envs = append(envs, e.Name())
		}
	}
	sort.Strings(envs)
	return envs, nil
}

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

// Package testutil builds throwaway configuration repositories for tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"

	"github.com/ido83/gitops-promote/internal/gitutil"
	"github.com/ido83/gitops-promote/internal/record"
)

// EnvRepo is a local git repository laid out like a configuration
// repository, optionally wired to a bare upstream so pushes can be tested
// for real.
type EnvRepo struct {
	T *testing.T

	// Dir is the working clone the tool operates on.
	Dir string

	// UpstreamDir is the bare repository registered as origin, or "" when
	// the repo was created without an upstream.
	UpstreamDir string

	Runner   *gitutil.GitLocalRunner
	Resolver record.Resolver
}

// NewEnvRepo creates an initialized repository in a temp directory. With
// withUpstream set, a bare upstream is created and registered as origin.
func NewEnvRepo(t *testing.T, ctx context.Context, withUpstream bool) *EnvRepo {
	t.Helper()
	dir := t.TempDir()

	runner, err := gitutil.NewLocalGitRunner(dir)
	require.NoError(t, err)

	_, err = runner.Run(ctx, "init", "--initial-branch=main")
	require.NoError(t, err)
	_, err = runner.Run(ctx, "config", "user.email", "test@example.com")
	require.NoError(t, err)
	_, err = runner.Run(ctx, "config", "user.name", "test")
	require.NoError(t, err)

	repo := &EnvRepo{
		T:      t,
		Dir:    dir,
		Runner: runner,
		Resolver: record.Resolver{
			RepoRoot: dir,
			EnvDir:   "envs",
		},
	}

	if withUpstream {
		upstream := t.TempDir()
		upstreamRunner, err := gitutil.NewLocalGitRunner(upstream)
		require.NoError(t, err)
		_, err = upstreamRunner.Run(ctx, "init", "--bare", "--initial-branch=main")
		require.NoError(t, err)
		_, err = runner.Run(ctx, "remote", "add", "origin", upstream)
		require.NoError(t, err)
		repo.UpstreamDir = upstream
	}
	return repo
}

// WriteRecord writes the record content for (env, app) and returns its
// repo-relative path. The change is left uncommitted.
func (r *EnvRepo) WriteRecord(env, app, content string) string {
	r.T.Helper()
	repoPath := r.Resolver.RepoPath(env, app)
	abs := filepath.Join(r.Dir, filepath.FromSlash(repoPath))
	require.NoError(r.T, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(r.T, os.WriteFile(abs, []byte(content), 0o644))
	return repoPath
}

// CopyFixture copies a fixture directory tree into the repository root.
func (r *EnvRepo) CopyFixture(fixtureDir string) {
	r.T.Helper()
	require.NoError(r.T, copy.Copy(fixtureDir, r.Dir))
}

// CommitAll stages and commits everything in the repository.
func (r *EnvRepo) CommitAll(ctx context.Context, message string) {
	r.T.Helper()
	_, err := r.Runner.Run(ctx, "add", "-A")
	require.NoError(r.T, err)
	_, err = r.Runner.Run(ctx, "commit", "-m", message)
	require.NoError(r.T, err)
}

// MustReadRecord returns the current content of the record for (env, app).
func (r *EnvRepo) MustReadRecord(env, app string) string {
	r.T.Helper()
	b, err := os.ReadFile(string(r.Resolver.AbsPath(env, app)))
	require.NoError(r.T, err)
	return string(b)
}

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

package gitutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ido83/gitops-promote/internal/errors"
	. "github.com/ido83/gitops-promote/internal/gitutil"
	"github.com/ido83/gitops-promote/pkg/printer/fake"
)

func TestLocalGitRunner(t *testing.T) {
	testCases := map[string]struct {
		command        string
		args           []string
		expectedStdout string
		expectedErr    *GitExecError
	}{
		"successful command with output to stdout": {
			command:        "branch",
			args:           []string{"--show-current"},
			expectedStdout: "main",
		},
		"failed command with output to stderr": {
			command: "checkout",
			args:    []string{"does-not-exist"},
			expectedErr: &GitExecError{
				StdOut: "",
				StdErr: "error: pathspec 'does-not-exist' did not match any file(s) known to git",
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			dir := t.TempDir()

			runner, err := NewLocalGitRunner(dir)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			_, err = runner.Run(fake.CtxWithDefaultPrinter(), "init", "--initial-branch=main")
			if !assert.NoError(t, err) {
				t.FailNow()
			}

			rr, err := runner.Run(fake.CtxWithDefaultPrinter(), tc.command, tc.args...)
			if tc.expectedErr != nil {
				var gitExecError *GitExecError
				if !errors.As(err, &gitExecError) {
					t.Error("expected error of type *GitExecError")
					t.FailNow()
				}
				assert.Equal(t, tc.expectedErr.StdOut, strings.TrimSpace(gitExecError.StdOut))
				assert.Equal(t, tc.expectedErr.StdErr, strings.TrimSpace(gitExecError.StdErr))
				return
			}

			if !assert.NoError(t, err) {
				t.FailNow()
			}

			assert.Equal(t, tc.expectedStdout, strings.TrimSpace(rr.Stdout))
		})
	}
}

func initRepo(t *testing.T) (*GitLocalRunner, string) {
	t.Helper()
	ctx := fake.CtxWithDefaultPrinter()
	dir := t.TempDir()
	runner, err := NewLocalGitRunner(dir)
	require.NoError(t, err)
	_, err = runner.Run(ctx, "init", "--initial-branch=main")
	require.NoError(t, err)
	_, err = runner.Run(ctx, "config", "user.email", "test@example.com")
	require.NoError(t, err)
	_, err = runner.Run(ctx, "config", "user.name", "test")
	require.NoError(t, err)
	return runner, dir
}

func writeAndCommit(t *testing.T, runner *GitLocalRunner, dir, path, content, message string) {
	t.Helper()
	ctx := fake.CtxWithDefaultPrinter()
	abs := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	require.NoError(t, runner.Commit(ctx, message, path))
}

func TestIsPathDirty(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	runner, dir := initRepo(t)
	writeAndCommit(t, runner, dir, "envs/dev/app/values.yaml", "a: 1\n", "seed")

	dirty, err := runner.IsPathDirty(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)
	assert.False(t, dirty)

	// an edit to the tracked file makes the exact path dirty
	require.NoError(t, os.WriteFile(filepath.Join(dir, "envs/dev/app/values.yaml"), []byte("a: 2\n"), 0o644))
	dirty, err = runner.IsPathDirty(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)
	assert.True(t, dirty)

	// an unrelated dirty file does not affect the path under test
	writeAndCommit(t, runner, dir, "envs/dev/app/values.yaml", "a: 2\n", "fix")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	dirty, err = runner.IsPathDirty(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestLastCommitForPath(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	runner, dir := initRepo(t)
	writeAndCommit(t, runner, dir, "envs/dev/app/values.yaml", "a: 1\n", "seed dev")
	writeAndCommit(t, runner, dir, "envs/staging/app/values.yaml", "a: 1\n", "seed staging")

	devSHA, err := runner.LastCommitForPath(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)
	stagingSHA, err := runner.LastCommitForPath(ctx, "envs/staging/app/values.yaml")
	require.NoError(t, err)
	assert.NotEqual(t, devSHA, stagingSHA)
	assert.Len(t, devSHA, 40)

	// the staging commit must not move dev's last commit
	writeAndCommit(t, runner, dir, "envs/staging/app/values.yaml", "a: 2\n", "bump staging")
	devSHA2, err := runner.LastCommitForPath(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)
	assert.Equal(t, devSHA, devSHA2)

	_, err = runner.LastCommitForPath(ctx, "envs/prod/app/values.yaml")
	assert.Error(t, err)
}

func TestCommitTouchesPath(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	runner, dir := initRepo(t)
	writeAndCommit(t, runner, dir, "envs/dev/app/values.yaml", "a: 1\n", "seed dev")
	writeAndCommit(t, runner, dir, "envs/staging/app/values.yaml", "a: 1\n", "seed staging")

	devSHA, err := runner.LastCommitForPath(ctx, "envs/dev/app/values.yaml")
	require.NoError(t, err)

	touches, err := runner.CommitTouchesPath(ctx, ShortSHA(devSHA), "envs/dev/app/values.yaml")
	require.NoError(t, err)
	assert.True(t, touches)

	touches, err = runner.CommitTouchesPath(ctx, ShortSHA(devSHA), "envs/staging/app/values.yaml")
	require.NoError(t, err)
	assert.False(t, touches)
}

func TestLog(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	runner, dir := initRepo(t)
	writeAndCommit(t, runner, dir, "envs/dev/app/values.yaml", "a: 1\n", "seed dev")
	writeAndCommit(t, runner, dir, "envs/staging/app/values.yaml", "a: 1\n",
		"promote app dev->staging tag=v1 anchor=deadbeef")

	entries, err := runner.Log(ctx, "envs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, "promote app dev->staging tag=v1 anchor=deadbeef", entries[0].Subject)
	assert.Equal(t, "seed dev", entries[1].Subject)
	assert.NotEmpty(t, entries[0].SHA)
	assert.NotEmpty(t, entries[0].Time)
}

func TestShortSHA(t *testing.T) {
	assert.Equal(t, "a12a8eb3", ShortSHA("a12a8eb3f9c61c4a6c35c5a0e9e0a9a7d9b0c1d2"))
	assert.Equal(t, "abc", ShortSHA("abc"))
}

func TestCurrentBranch(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	runner, dir := initRepo(t)
	writeAndCommit(t, runner, dir, "README.md", "hi\n", "initial")

	branch, err := runner.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

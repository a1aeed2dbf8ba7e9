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

package promote_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/gitutil"
	"github.com/ido83/gitops-promote/internal/promote"
	"github.com/ido83/gitops-promote/internal/testutil"
	"github.com/ido83/gitops-promote/pkg/printer/fake"
)

func gitCommand(repo *testutil.EnvRepo, from, to string) promote.Command {
	return promote.Command{
		FromEnv:  from,
		ToEnv:    to,
		App:      "demo-app",
		RootEnv:  "dev",
		Resolver: repo.Resolver,
		// Branch left empty: the checked-out branch is resolved when the
		// publish stage runs
		VCS: &promote.GitVCS{
			Runner: repo.Runner,
			Remote: "origin",
		},
	}
}

func seedRepo(t *testing.T, repo *testutil.EnvRepo) {
	t.Helper()
	ctx := fake.CtxWithDefaultPrinter()
	repo.WriteRecord("dev", "demo-app", devRecord)
	repo.WriteRecord("staging", "demo-app", stagingRecord)
	repo.CommitAll(ctx, "seed environments")
}

func TestRunAgainstGit(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	repo := testutil.NewEnvRepo(t, ctx, true)
	seedRepo(t, repo)
	_, err := repo.Runner.Run(ctx, "push", "-u", "origin", "main")
	require.NoError(t, err)

	headBefore, err := repo.Runner.Run(ctx, "rev-list", "--count", "HEAD")
	require.NoError(t, err)

	result, err := gitCommand(repo, "dev", "staging").Run(ctx)
	require.NoError(t, err)

	// the anchor is the short form of the commit that last touched the
	// source record
	devSHA, err := repo.Runner.LastCommitForPath(ctx, "envs/dev/demo-app/values.yaml")
	require.NoError(t, err)
	assert.Equal(t, gitutil.ShortSHA(devSHA), result.AnchorSHA)

	// exactly one new commit, touching exactly the target record
	headAfter, err := repo.Runner.Run(ctx, "rev-list", "--count", "HEAD")
	require.NoError(t, err)
	assert.NotEqual(t, headBefore.Stdout, headAfter.Stdout)
	show, err := repo.Runner.Run(ctx, "show", "--name-only", "--format=%s", "HEAD")
	require.NoError(t, err)
	var lines []string
	for _, l := range strings.Split(show.Stdout, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	require.Len(t, lines, 2)
	assert.Equal(t, result.Message, lines[0])
	assert.Equal(t, "envs/staging/demo-app/values.yaml", lines[1])

	// the working copy is clean after a successful promotion
	status, err := repo.Runner.Run(ctx, "status", "--porcelain")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(status.Stdout))

	// the commit reached the upstream
	upstreamRunner, err := gitutil.NewLocalGitRunner(repo.UpstreamDir)
	require.NoError(t, err)
	upstreamLog, err := upstreamRunner.Run(ctx, "log", "-1", "--format=%s", "main")
	require.NoError(t, err)
	assert.Equal(t, result.Message, strings.TrimSpace(upstreamLog.Stdout))
}

func TestRunAgainstGitRepromotion(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	repo := testutil.NewEnvRepo(t, ctx, true)
	seedRepo(t, repo)
	_, err := repo.Runner.Run(ctx, "push", "-u", "origin", "main")
	require.NoError(t, err)

	// distinct fixed clocks so the two promotions differ in promotedAt
	// even when they run within the same second
	firstCmd := gitCommand(repo, "dev", "staging")
	firstCmd.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	first, err := firstCmd.Run(ctx)
	require.NoError(t, err)

	// an identical re-promotion is not short-circuited: same anchor, new
	// commit
	secondCmd := gitCommand(repo, "dev", "staging")
	secondCmd.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC) }
	second, err := secondCmd.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.AnchorSHA, second.AnchorSHA)
	assert.Equal(t, first.Tag, second.Tag)

	count, err := repo.Runner.Run(ctx, "rev-list", "--count", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(count.Stdout))
}

func TestRunAgainstGitDirtySource(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	repo := testutil.NewEnvRepo(t, ctx, false)
	seedRepo(t, repo)

	// uncommitted edit to the source record
	repo.WriteRecord("dev", "demo-app", strings.Replace(devRecord, "v2", "v3", 1))

	before := repo.MustReadRecord("staging", "demo-app")
	_, err := gitCommand(repo, "dev", "staging").Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.DirtySource))
	assert.Equal(t, before, repo.MustReadRecord("staging", "demo-app"))
}

func TestRunAgainstGitPushFailure(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	// no upstream configured: the commit lands locally, the push fails
	repo := testutil.NewEnvRepo(t, ctx, false)
	seedRepo(t, repo)

	_, err := gitCommand(repo, "dev", "staging").Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Publish))
	assert.True(t, errors.Is(err, promote.ErrPushFailed))

	// the failing push carries the remote and branch it was aimed at
	var execErr *gitutil.GitExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "origin", execErr.Repo)
	assert.Equal(t, "main", execErr.Ref)

	// the local commit is kept as an inspectable intermediate state
	log, err := repo.Runner.Run(ctx, "log", "-1", "--format=%s", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, log.Stdout, "promote demo-app dev->staging")
}

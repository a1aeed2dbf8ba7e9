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

package promote

import (
	"context"
	"fmt"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/gitutil"
)

// GitVCS implements VersionControl by shelling out to git through a local
// runner rooted at the repository.
type GitVCS struct {
	Runner *gitutil.GitLocalRunner

	// Remote and Branch name the shared upstream the publish stage pushes
	// to. An empty Branch means the currently checked-out branch, resolved
	// when the publish stage runs.
	Remote string
	Branch string
}

var _ VersionControl = &GitVCS{}

func (g *GitVCS) IsDirty(ctx context.Context, path string) (bool, error) {
	return g.Runner.IsPathDirty(ctx, path)
}

func (g *GitVCS) LastCommit(ctx context.Context, path string) (string, error) {
	return g.Runner.LastCommitForPath(ctx, path)
}

// CommitAndPush stages exactly the given paths, commits them, and pushes
// the branch. A push failure is reported with the Publish kind and
// ErrPushFailed in the chain: the local commit is kept as an inspectable
// intermediate state, there is no rollback.
func (g *GitVCS) CommitAndPush(ctx context.Context, message string, paths ...string) error {
	const op errors.Op = "promote.CommitAndPush"
	if err := g.Runner.Commit(ctx, message, paths...); err != nil {
		return errors.E(op, err)
	}
	branch := g.Branch
	if branch == "" {
		var err error
		branch, err = g.Runner.CurrentBranch(ctx)
		if err != nil {
			return errors.E(op, errors.Publish,
				fmt.Errorf("%w: commit landed locally but no branch could be resolved to push: %w",
					ErrPushFailed, err))
		}
	}
	if err := g.Runner.Push(ctx, g.Remote, branch); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = g.Remote
			e.Ref = branch
		})
		return errors.E(op, errors.Publish,
			fmt.Errorf("%w: commit landed locally but was not pushed to %s/%s: %w",
				ErrPushFailed, g.Remote, branch, err))
	}
	return nil
}

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

// Package promote contains the promotion engine.
//
// A promotion copies an already-built artifact reference from one
// environment's record to the next and anchors the copy to the git revision
// that last modified the source record. The engine runs four stages
// strictly in sequence: resolve, guard, write, publish. Any failing stage
// aborts the run; the guards never mutate anything, so a guard failure
// leaves the repository byte-identical to before the run.
package promote

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/gitutil"
	"github.com/ido83/gitops-promote/internal/record"
	"github.com/ido83/gitops-promote/pkg/printer"
)

// VersionControl is the narrow seam to the underlying version-control
// system. Paths are repo-relative. The real implementation shells out to
// git; tests substitute fakes so guard ordering is checkable without a
// repository.
type VersionControl interface {
	// IsDirty reports whether path has uncommitted modifications relative
	// to the last committed content.
	IsDirty(ctx context.Context, path string) (bool, error)

	// LastCommit returns the full revision id of the most recent commit
	// that modified path.
	LastCommit(ctx context.Context, path string) (string, error)

	// CommitAndPush persists the staged paths as a single commit with the
	// given message and publishes it to the shared upstream. A commit that
	// lands locally but fails to push returns an error with ErrPushFailed
	// in its chain.
	CommitAndPush(ctx context.Context, message string, paths ...string) error
}

// ErrPushFailed marks a CommitAndPush error whose commit succeeded locally.
var ErrPushFailed = fmt.Errorf("push to upstream failed")

// Clock returns the current time. Substituted in tests for a fixed value.
type Clock func() time.Time

// Command promotes an application's record from one environment to the
// next.
type Command struct {
	// FromEnv and ToEnv are the source and target environment names.
	FromEnv string
	ToEnv   string

	// App is the application whose record chain is being promoted.
	App string

	// RootEnv is the first environment in the chain. Its anchor is seeded
	// by CI, so the chain-integrity guard does not apply when promoting
	// from it.
	RootEnv string

	// Resolver locates environment records inside the repository.
	Resolver record.Resolver

	// VCS is the version-control seam used for the guards and the publish
	// stage.
	VCS VersionControl

	// Now supplies the promotion timestamp. Defaults to time.Now.
	Now Clock
}

// Result describes a completed promotion.
type Result struct {
	App        string
	FromEnv    string
	ToEnv      string
	Repository string
	Tag        string
	AnchorSHA  string
	PromotedAt string
	TargetPath string
	Message    string
}

// Run executes the promotion workflow: resolve both records, evaluate the
// guards, write the anchor fields into the target, and publish the result
// as one commit touching exactly the target record.
func (c Command) Run(ctx context.Context) (*Result, error) {
	const op errors.Op = "promote.Run"
	pr := printer.FromContextOrDie(ctx)

	if err := c.validate(); err != nil {
		return nil, errors.E(op, err)
	}

	// Resolve. Both records must exist before any git operation runs.
	source, err := c.Resolver.Resolve(c.FromEnv, c.App)
	if err != nil {
		return nil, errors.E(op, err)
	}
	target, err := c.Resolver.Resolve(c.ToEnv, c.App)
	if err != nil {
		return nil, errors.E(op, err)
	}

	// Guard A: the anchor is computed against the last committed revision
	// of the source record, so the working copy must match it exactly.
	dirty, err := c.VCS.IsDirty(ctx, source.RepoPath)
	if err != nil {
		return nil, errors.E(op, source.Path, err)
	}
	if dirty {
		return nil, errors.E(op, source.Path, errors.DirtySource,
			fmt.Errorf("source record %q has uncommitted changes; commit or discard them first", source.RepoPath))
	}

	// Guard B: a non-root source must itself have been promoted into
	// through this workflow.
	if c.FromEnv != c.RootEnv {
		anchor, err := source.PromotionAnchor()
		if err != nil {
			return nil, errors.E(op, err)
		}
		if anchor.GitSHA == "" {
			return nil, errors.E(op, source.Path, errors.BrokenChain,
				fmt.Errorf("environment %q has no promotion anchor; promote into it before promoting from it", c.FromEnv))
		}
	}

	// Anchor computation and write.
	tag, err := source.ImageTag()
	if err != nil {
		return nil, errors.E(op, err)
	}
	repo, err := source.ImageRepository()
	if err != nil {
		return nil, errors.E(op, err)
	}
	if tag == "" || repo == "" {
		return nil, errors.E(op, source.Path, errors.MissingField,
			fmt.Errorf("source record must carry image.tag and image.repository"))
	}

	anchorSHA, err := c.VCS.LastCommit(ctx, source.RepoPath)
	if err != nil {
		return nil, errors.E(op, source.Path, err)
	}
	shortSHA := gitutil.ShortSHA(anchorSHA)
	promotedAt := c.now().UTC().Format(time.RFC3339)

	klog.V(2).Infof("promoting %s %s->%s tag=%s anchor=%s", c.App, c.FromEnv, c.ToEnv, tag, shortSHA)

	if err := target.SetPromotion(record.Promotion{
		Repository: repo,
		Tag:        tag,
		AnchorSHA:  shortSHA,
		PromotedAt: promotedAt,
		FromEnv:    c.FromEnv,
	}); err != nil {
		return nil, errors.E(op, err)
	}
	if err := target.Save(); err != nil {
		return nil, errors.E(op, err)
	}

	// Publish. The commit message encodes the full provenance so the
	// history command can reconstruct the audit trail from git log alone.
	message := CommitMessage(c.App, c.FromEnv, c.ToEnv, tag, shortSHA)
	if err := c.VCS.CommitAndPush(ctx, message, target.RepoPath); err != nil {
		return nil, errors.E(op, target.Path, err)
	}

	pr.OptPrintf(printer.NewOpt().Record(target.Path), "promoted %s %s->%s image=%s:%s anchor=%s at=%s\n",
		c.App, c.FromEnv, c.ToEnv, repo, tag, shortSHA, promotedAt)

	return &Result{
		App:        c.App,
		FromEnv:    c.FromEnv,
		ToEnv:      c.ToEnv,
		Repository: repo,
		Tag:        tag,
		AnchorSHA:  shortSHA,
		PromotedAt: promotedAt,
		TargetPath: target.RepoPath,
		Message:    message,
	}, nil
}

func (c Command) validate() error {
	const op errors.Op = "promote.validate"
	switch {
	case c.FromEnv == "":
		return errors.E(op, errors.MissingParam, "source environment must not be empty")
	case c.ToEnv == "":
		return errors.E(op, errors.MissingParam, "target environment must not be empty")
	case c.App == "":
		return errors.E(op, errors.MissingParam, "application name must not be empty")
	case c.FromEnv == c.ToEnv:
		return errors.E(op, errors.InvalidParam,
			fmt.Errorf("source and target environment are both %q", c.FromEnv))
	case c.VCS == nil:
		return errors.E(op, errors.Internal, "no version control configured")
	}
	return nil
}

// now returns the configured clock's time, defaulting to time.Now.
func (c Command) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

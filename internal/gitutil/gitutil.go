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

// Package gitutil runs git commands against the configuration repository
// and exposes the narrow set of queries the promotion workflow needs.
package gitutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"

	"github.com/ido83/gitops-promote/internal/errors"
)

// ShortSHALength is the number of hex characters kept when a commit SHA is
// recorded as a promotion anchor.
const ShortSHALength = 8

// NewLocalGitRunner returns a new GitLocalRunner for the repository rooted
// at dir.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewLocalGitRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.E(op, errors.Git,
			fmt.Errorf("no 'git' program on path: %w", err))
	}

	return &GitLocalRunner{
		gitPath: p,
		Dir:     dir,
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command.
// Omit the 'git' part of the command.
// The first return value contains the output to Stdout and Stderr when
// running the command.
func (g *GitLocalRunner) Run(ctx context.Context, command string, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.Run"

	fullArgs := append([]string{command}, args...)
	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	cmd.Dir = g.Dir
	cmd.Env = os.Environ()

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	klog.V(4).Infof("running: git %s (in %s)", strings.Join(fullArgs, " "), g.Dir)
	err := cmd.Run()
	if err != nil {
		return RunResult{}, errors.E(op, errors.Git, &GitExecError{
			Type:    determineErrorType(cmdStderr.String()),
			Command: command,
			Args:    args,
			Err:     err,
			StdOut:  cmdStdout.String(),
			StdErr:  cmdStderr.String(),
		})
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// IsPathDirty reports whether the tracked file at the repo-relative path has
// uncommitted modifications. It compares against the committed content, not
// file metadata: any status entry for the exact path counts as dirty,
// including staged-but-uncommitted changes.
func (g *GitLocalRunner) IsPathDirty(ctx context.Context, path string) (bool, error) {
	const op errors.Op = "gitutil.IsPathDirty"
	rr, err := g.Run(ctx, "status", "--porcelain", "--", path)
	if err != nil {
		return false, errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout) != "", nil
}

// LastCommitForPath returns the full SHA of the most recent commit that
// modified the repo-relative path. An empty result means no commit has ever
// touched the path.
func (g *GitLocalRunner) LastCommitForPath(ctx context.Context, path string) (string, error) {
	const op errors.Op = "gitutil.LastCommitForPath"
	rr, err := g.Run(ctx, "log", "-1", "--format=%H", "--", path)
	if err != nil {
		return "", errors.E(op, err)
	}
	sha := strings.TrimSpace(rr.Stdout)
	if sha == "" {
		return "", errors.E(op, errors.Git,
			fmt.Errorf("no commit found touching %q", path))
	}
	return sha, nil
}

// CurrentBranch returns the name of the branch currently checked out.
func (g *GitLocalRunner) CurrentBranch(ctx context.Context) (string, error) {
	const op errors.Op = "gitutil.CurrentBranch"
	rr, err := g.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// CommitTouchesPath reports whether the given commit modified the
// repo-relative path.
func (g *GitLocalRunner) CommitTouchesPath(ctx context.Context, sha, path string) (bool, error) {
	const op errors.Op = "gitutil.CommitTouchesPath"
	rr, err := g.Run(ctx, "show", "--name-only", "--format=", sha)
	if err != nil {
		return false, errors.E(op, err)
	}
	scanner := bufio.NewScanner(strings.NewReader(rr.Stdout))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == path {
			return true, nil
		}
	}
	return false, nil
}

// Commit stages exactly the provided repo-relative paths and commits them
// with the given message.
func (g *GitLocalRunner) Commit(ctx context.Context, message string, paths ...string) error {
	const op errors.Op = "gitutil.Commit"
	addArgs := append([]string{"--"}, paths...)
	if _, err := g.Run(ctx, "add", addArgs...); err != nil {
		return errors.E(op, err)
	}
	commitArgs := append([]string{"-m", message, "--"}, paths...)
	if _, err := g.Run(ctx, "commit", commitArgs...); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Push publishes the branch to the remote. Failures are classified so the
// caller can distinguish a rejected push from other git errors.
func (g *GitLocalRunner) Push(ctx context.Context, remote, branch string) error {
	const op errors.Op = "gitutil.Push"
	if _, err := g.Run(ctx, "push", remote, branch); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// LogEntry is one parsed commit from the repository history.
type LogEntry struct {
	SHA     string
	Time    string
	Subject string
}

// Log returns, newest first, the commits that touched the repo-relative
// path.
func (g *GitLocalRunner) Log(ctx context.Context, path string) ([]LogEntry, error) {
	const op errors.Op = "gitutil.Log"
	rr, err := g.Run(ctx, "log", "--format=%h%x09%cI%x09%s", "--", path)
	if err != nil {
		return nil, errors.E(op, err)
	}

	var entries []LogEntry
	scanner := bufio.NewScanner(strings.NewReader(rr.Stdout))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		entries = append(entries, LogEntry{
			SHA:     parts[0],
			Time:    parts[1],
			Subject: parts[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(op, errors.Git,
			fmt.Errorf("error parsing output from git log: %w", err))
	}
	return entries, nil
}

// ShortSHA truncates a full commit SHA to the fixed short form used in
// promotion anchors.
func ShortSHA(sha string) string {
	if len(sha) <= ShortSHALength {
		return sha
	}
	return sha[:ShortSHALength]
}

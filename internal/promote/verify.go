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
	"github.com/ido83/gitops-promote/internal/record"
)

// Verifier audits the anchor chain for one application: every non-root
// record's anchor must reference a commit that actually modified the record
// of the environment it was promoted from.
type Verifier struct {
	App     string
	RootEnv string

	Resolver record.Resolver
	Runner   *gitutil.GitLocalRunner
}

// Violation is one detected break in the chain of custody.
type Violation struct {
	Env    string
	Record string
	Reason string
}

// Run inspects every environment that has a record for the app and returns
// the detected violations. An empty slice means the chain is intact.
func (v Verifier) Run(ctx context.Context) ([]Violation, error) {
	const op errors.Op = "promote.Verify"
	envs, err := v.Resolver.Environments(v.App)
	if err != nil {
		return nil, errors.E(op, err)
	}

	var violations []Violation
	for _, env := range envs {
		rec, err := v.Resolver.Resolve(env, v.App)
		if err != nil {
			return nil, errors.E(op, err)
		}
		anchor, err := rec.PromotionAnchor()
		if err != nil {
			return nil, errors.E(op, err)
		}

		if anchor.GitSHA == "" {
			if env != v.RootEnv {
				violations = append(violations, Violation{
					Env:    env,
					Record: rec.RepoPath,
					Reason: "no promotion anchor; environment was never promoted into",
				})
			}
			continue
		}

		if anchor.FromEnv == "" {
			violations = append(violations, Violation{
				Env:    env,
				Record: rec.RepoPath,
				Reason: "anchor carries a gitSHA but no fromEnv",
			})
			continue
		}

		upstream := v.Resolver.RepoPath(anchor.FromEnv, v.App)
		touches, err := v.Runner.CommitTouchesPath(ctx, anchor.GitSHA, upstream)
		if err != nil {
			// an anchor outside this repository's history is a chain
			// violation; any other git failure is the caller's problem
			var execErr *gitutil.GitExecError
			if errors.As(err, &execErr) && execErr.Type == gitutil.UnknownReference {
				violations = append(violations, Violation{
					Env:    env,
					Record: rec.RepoPath,
					Reason: fmt.Sprintf("anchor %s is not a known revision", anchor.GitSHA),
				})
				continue
			}
			return nil, errors.E(op, err)
		}
		if !touches {
			violations = append(violations, Violation{
				Env:    env,
				Record: rec.RepoPath,
				Reason: fmt.Sprintf("anchor %s did not modify upstream record %s", anchor.GitSHA, upstream),
			})
		}
	}
	return violations, nil
}

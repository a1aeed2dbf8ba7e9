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

package resolver

import (
	"fmt"

	"github.com/ido83/gitops-promote/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&promoteErrorResolver{})
}

// promoteErrorResolver maps the promotion guard and stage failures to
// operator-facing messages. Each kind names what the operator must do; none
// of these failures are retried by the tool.
type promoteErrorResolver struct{}

func (*promoteErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var promoteErr *errors.Error
	if !errors.As(err, &promoteErr) {
		return ResolvedResult{}, false
	}

	var msg string
	switch {
	case errors.IsKind(err, errors.RecordNotFound):
		msg = fmt.Sprintf("Error: %v\n"+
			"Create the environment record before promoting through it.", err)

	case errors.IsKind(err, errors.DirtySource):
		msg = fmt.Sprintf("Error: %v\n"+
			"The anchor is computed against the committed record; commit or discard the local changes and re-run.", err)

	case errors.IsKind(err, errors.BrokenChain):
		msg = fmt.Sprintf("Error: %v\n"+
			"Every environment must be promoted into through this workflow before it can be promoted from.", err)

	case errors.IsKind(err, errors.MissingField):
		msg = fmt.Sprintf("Error: %v\n"+
			"The source record is corrupted or was hand-edited; restore image.tag and image.repository.", err)

	case errors.IsKind(err, errors.Malformed):
		msg = fmt.Sprintf("Error: %v", err)

	case errors.IsKind(err, errors.Publish):
		msg = fmt.Sprintf("Error: %v\n"+
			"The promotion is committed locally but is not visible to the reconciler yet; resolve and push, do not re-run.", err)

	default:
		return ResolvedResult{}, false
	}
	return ResolvedResult{Message: msg}, true
}

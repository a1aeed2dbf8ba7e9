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
	"fmt"
	"regexp"
)

// Promotion commits carry a fixed, machine-parseable subject line so the
// audit trail can be reconstructed from git log alone:
//
//	promote <app> <from>-><to> tag=<tag> anchor=<sha>
var messageRE = regexp.MustCompile(`^promote (\S+) (\S+)->(\S+) tag=(\S+) anchor=([0-9a-f]+)$`)

// CommitMessage renders the commit subject for a promotion.
func CommitMessage(app, fromEnv, toEnv, tag, anchorSHA string) string {
	return fmt.Sprintf("promote %s %s->%s tag=%s anchor=%s", app, fromEnv, toEnv, tag, anchorSHA)
}

// AuditEntry is one promotion reconstructed from a commit subject.
type AuditEntry struct {
	App       string
	FromEnv   string
	ToEnv     string
	Tag       string
	AnchorSHA string
}

// ParseCommitMessage parses a commit subject produced by CommitMessage.
// The second return value is false for commits that are not promotions.
func ParseCommitMessage(subject string) (AuditEntry, bool) {
	m := messageRE.FindStringSubmatch(subject)
	if m == nil {
		return AuditEntry{}, false
	}
	return AuditEntry{
		App:       m[1],
		FromEnv:   m[2],
		ToEnv:     m[3],
		Tag:       m[4],
		AnchorSHA: m[5],
	}, true
}

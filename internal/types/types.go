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

// Package types defines the basic types shared across the codebase.
package types

import (
	"os"
	"path/filepath"
	"strings"
)

// UniquePath represents the absolute OS-defined path to an environment
// record file on the filesystem.
type UniquePath string

// String returns the absolute path in string format.
func (u UniquePath) String() string {
	return string(u)
}

// Empty returns true if the path is unset.
func (u UniquePath) Empty() bool {
	return string(u) == ""
}

// RelativePath returns the path relative to the current working directory.
func (u UniquePath) RelativePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	rPath, err := filepath.Rel(cwd, string(u))
	if err != nil {
		return string(u), err
	}
	if strings.HasPrefix(rPath, "..") {
		return string(u), nil
	}
	return rPath, nil
}

// DisplayPath represents a slash-separated path to a record file relative to
// the repository root. It is not guaranteed to be unique and should only be
// used for display purposes.
type DisplayPath string

// Empty returns true if the display path is unset.
func (d DisplayPath) Empty() bool {
	return string(d) == ""
}

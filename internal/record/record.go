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

// Package record reads and mutates environment configuration records.
//
// A record is the per-(application, environment) values document consumed by
// the deployment reconciler. Mutations are field surgery on the parsed node
// tree so that comments, ordering and every field not owned by the
// promotion workflow survive a rewrite untouched.
package record

import (
	"fmt"

	"sigs.k8s.io/kustomize/kyaml/yaml"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/types"
)

// FileName is the name of the record document inside an environment
// directory.
const FileName = "values.yaml"

// Record is the in-memory form of one environment configuration record.
type Record struct {
	// Path is the absolute path of the record on disk.
	Path types.UniquePath

	// RepoPath is the record's path relative to the repository root, in the
	// form git accepts as a pathspec.
	RepoPath string

	node *yaml.RNode
}

// Promotion holds the five field values written together as one unit by a
// promotion.
type Promotion struct {
	Repository string
	Tag        string
	AnchorSHA  string
	PromotedAt string
	FromEnv    string
}

// Anchor is the recorded provenance of the last promotion into an
// environment.
type Anchor struct {
	GitSHA     string `json:"gitSHA,omitempty"`
	PromotedAt string `json:"promotedAt,omitempty"`
	FromEnv    string `json:"fromEnv,omitempty"`
}

// Summary is the typed view of a record used for inspection output.
type Summary struct {
	App             string `json:"app"`
	Environment     string `json:"environment"`
	Repository      string `json:"repository,omitempty"`
	Tag             string `json:"tag,omitempty"`
	LastPromotedTag string `json:"lastPromotedTag,omitempty"`
	Anchor          Anchor `json:"promotionAnchor,omitempty"`
}

// Load parses the record at absPath. repoPath is the same file relative to
// the repository root.
func Load(absPath types.UniquePath, repoPath string) (*Record, error) {
	const op errors.Op = "record.Load"
	node, err := yaml.ReadFile(string(absPath))
	if err != nil {
		return nil, errors.E(op, absPath, errors.Malformed,
			fmt.Errorf("unable to parse record: %w", err))
	}
	return &Record{
		Path:     absPath,
		RepoPath: repoPath,
		node:     node,
	}, nil
}

// Save writes the record back to its path, preserving the document
// structure it was parsed with.
func (r *Record) Save() error {
	const op errors.Op = "record.Save"
	if err := yaml.WriteFile(r.node, string(r.Path)); err != nil {
		return errors.E(op, r.Path, errors.Malformed, err)
	}
	return nil
}

// ImageRepository returns image.repository, or "" when absent.
func (r *Record) ImageRepository() (string, error) {
	return r.field("image", "repository")
}

// ImageTag returns image.tag, or "" when absent.
func (r *Record) ImageTag() (string, error) {
	return r.field("image", "tag")
}

// LastPromotedTag returns appMetadata.lastPromotedTag, or "" when absent.
func (r *Record) LastPromotedTag() (string, error) {
	return r.field("appMetadata", "lastPromotedTag")
}

// Environment returns appMetadata.environment, or "" when absent.
func (r *Record) Environment() (string, error) {
	return r.field("appMetadata", "environment")
}

// PromotionAnchor returns the anchor fields. A zero-value GitSHA means the
// record was never promoted into through the controlled workflow.
func (r *Record) PromotionAnchor() (Anchor, error) {
	const op errors.Op = "record.PromotionAnchor"
	var a Anchor
	var err error
	if a.GitSHA, err = r.field("appMetadata", "promotionAnchor", "gitSHA"); err != nil {
		return Anchor{}, errors.E(op, r.Path, err)
	}
	if a.PromotedAt, err = r.field("appMetadata", "promotionAnchor", "promotedAt"); err != nil {
		return Anchor{}, errors.E(op, r.Path, err)
	}
	if a.FromEnv, err = r.field("appMetadata", "promotionAnchor", "fromEnv"); err != nil {
		return Anchor{}, errors.E(op, r.Path, err)
	}
	return a, nil
}

// SetPromotion overwrites the five promotion-owned fields. All other
// content of the record is left untouched.
func (r *Record) SetPromotion(p Promotion) error {
	const op errors.Op = "record.SetPromotion"
	fields := []struct {
		value string
		path  []string
	}{
		{p.Repository, []string{"image", "repository"}},
		{p.Tag, []string{"image", "tag"}},
		{p.Tag, []string{"appMetadata", "lastPromotedTag"}},
		{p.AnchorSHA, []string{"appMetadata", "promotionAnchor", "gitSHA"}},
		{p.PromotedAt, []string{"appMetadata", "promotionAnchor", "promotedAt"}},
		{p.FromEnv, []string{"appMetadata", "promotionAnchor", "fromEnv"}},
	}
	for _, f := range fields {
		if err := r.setField(f.value, f.path...); err != nil {
			return errors.E(op, r.Path, errors.Malformed, err)
		}
	}
	return nil
}

// Summarize extracts the typed view of the record for display.
func (r *Record) Summarize(app, env string) (Summary, error) {
	const op errors.Op = "record.Summarize"
	s := Summary{App: app, Environment: env}
	var err error
	if s.Repository, err = r.ImageRepository(); err != nil {
		return Summary{}, errors.E(op, r.Path, err)
	}
	if s.Tag, err = r.ImageTag(); err != nil {
		return Summary{}, errors.E(op, r.Path, err)
	}
	if s.LastPromotedTag, err = r.LastPromotedTag(); err != nil {
		return Summary{}, errors.E(op, r.Path, err)
	}
	if s.Anchor, err = r.PromotionAnchor(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (r *Record) field(path ...string) (string, error) {
	n, err := r.node.Pipe(yaml.Lookup(path...))
	if err != nil {
		return "", errors.E(errors.Op("record.field"), r.Path, errors.Malformed, err)
	}
	if n == nil {
		return "", nil
	}
	return yaml.GetValue(n), nil
}

func (r *Record) setField(value string, path ...string) error {
	parent := path[:len(path)-1]
	name := path[len(path)-1]
	_, err := r.node.Pipe(
		yaml.LookupCreate(yaml.MappingNode, parent...),
		yaml.SetField(name, yaml.NewStringRNode(value)))
	return err
}

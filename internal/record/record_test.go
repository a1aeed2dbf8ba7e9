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

package record_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ido83/gitops-promote/internal/errors"
	"github.com/ido83/gitops-promote/internal/record"
	"github.com/ido83/gitops-promote/internal/types"
)

const stagingRecord = `# values for demo-app in staging
image:
  repository: registry.example.com/demo-app
  tag: "v1"
  pullPolicy: IfNotPresent
replicaCount: 2
resources:
  limits:
    memory: 256Mi
appMetadata:
  environment: staging
  lastPromotedTag: ""
  promotionAnchor:
    gitSHA: ""
    promotedAt: ""
    fromEnv: ""
ingress:
  host: staging.example.com
`

func writeRecord(t *testing.T, dir, repoPath, content string) types.UniquePath {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(repoPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return types.UniquePath(abs)
}

func TestLoadFieldAccess(t *testing.T) {
	dir := t.TempDir()
	abs := writeRecord(t, dir, "envs/staging/demo-app/values.yaml", stagingRecord)

	rec, err := record.Load(abs, "envs/staging/demo-app/values.yaml")
	require.NoError(t, err)

	tag, err := rec.ImageTag()
	require.NoError(t, err)
	assert.Equal(t, "v1", tag)

	repo, err := rec.ImageRepository()
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com/demo-app", repo)

	env, err := rec.Environment()
	require.NoError(t, err)
	assert.Equal(t, "staging", env)

	anchor, err := rec.PromotionAnchor()
	require.NoError(t, err)
	assert.Equal(t, record.Anchor{}, anchor)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	abs := writeRecord(t, dir, "envs/dev/demo-app/values.yaml", "image: [unclosed\n")

	_, err := record.Load(abs, "envs/dev/demo-app/values.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Malformed))
}

func TestSetPromotionPreservesUnrelatedFields(t *testing.T) {
	dir := t.TempDir()
	abs := writeRecord(t, dir, "envs/staging/demo-app/values.yaml", stagingRecord)

	rec, err := record.Load(abs, "envs/staging/demo-app/values.yaml")
	require.NoError(t, err)
	require.NoError(t, rec.SetPromotion(record.Promotion{
		Repository: "registry.example.com/demo-app",
		Tag:        "v2",
		AnchorSHA:  "a12a8eb3",
		PromotedAt: "2024-06-01T12:00:00Z",
		FromEnv:    "dev",
	}))
	require.NoError(t, rec.Save())

	got, err := os.ReadFile(string(abs))
	require.NoError(t, err)

	// every line not owned by the promotion survives the rewrite verbatim
	preserved := []string{
		"# values for demo-app in staging",
		"  repository: registry.example.com/demo-app",
		"  pullPolicy: IfNotPresent",
		"replicaCount: 2",
		"    memory: 256Mi",
		"  environment: staging",
		"  host: staging.example.com",
	}
	for _, line := range preserved {
		assert.Contains(t, string(got), line+"\n")
	}

	reloaded, err := record.Load(abs, "envs/staging/demo-app/values.yaml")
	require.NoError(t, err)
	tag, err := reloaded.ImageTag()
	require.NoError(t, err)
	lastPromoted, err := reloaded.LastPromotedTag()
	require.NoError(t, err)
	anchor, err := reloaded.PromotionAnchor()
	require.NoError(t, err)

	assert.Equal(t, "v2", tag)
	assert.Equal(t, "v2", lastPromoted)
	if diff := cmp.Diff(record.Anchor{
		GitSHA:     "a12a8eb3",
		PromotedAt: "2024-06-01T12:00:00Z",
		FromEnv:    "dev",
	}, anchor); diff != "" {
		t.Errorf("anchor mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPromotionCreatesMissingSections(t *testing.T) {
	dir := t.TempDir()
	abs := writeRecord(t, dir, "envs/prod/demo-app/values.yaml", "replicaCount: 5\n")

	rec, err := record.Load(abs, "envs/prod/demo-app/values.yaml")
	require.NoError(t, err)
	require.NoError(t, rec.SetPromotion(record.Promotion{
		Repository: "registry.example.com/demo-app",
		Tag:        "v3",
		AnchorSHA:  "deadbeef",
		PromotedAt: "2024-06-01T12:00:00Z",
		FromEnv:    "staging",
	}))
	require.NoError(t, rec.Save())

	reloaded, err := record.Load(abs, "envs/prod/demo-app/values.yaml")
	require.NoError(t, err)
	tag, err := reloaded.ImageTag()
	require.NoError(t, err)
	assert.Equal(t, "v3", tag)
	anchor, err := reloaded.PromotionAnchor()
	require.NoError(t, err)
	assert.Equal(t, record.Anchor{
		GitSHA:     "deadbeef",
		PromotedAt: "2024-06-01T12:00:00Z",
		FromEnv:    "staging",
	}, anchor)
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "envs/dev/demo-app/values.yaml", stagingRecord)
	writeRecord(t, dir, "envs/staging/demo-app/values.yaml", stagingRecord)
	writeRecord(t, dir, "envs/prod/other-app/values.yaml", stagingRecord)

	r := record.Resolver{RepoRoot: dir, EnvDir: "envs"}

	rec, err := r.Resolve("dev", "demo-app")
	require.NoError(t, err)
	assert.Equal(t, "envs/dev/demo-app/values.yaml", rec.RepoPath)

	_, err = r.Resolve("prod", "demo-app")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.RecordNotFound))

	_, err = r.Resolve("", "demo-app")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.MissingParam))

	envs, err := r.Environments("demo-app")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "staging"}, envs)
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	abs := writeRecord(t, dir, "envs/staging/demo-app/values.yaml", stagingRecord)

	rec, err := record.Load(abs, "envs/staging/demo-app/values.yaml")
	require.NoError(t, err)

	s, err := rec.Summarize("demo-app", "staging")
	require.NoError(t, err)
	assert.Equal(t, record.Summary{
		App:         "demo-app",
		Environment: "staging",
		Repository:  "registry.example.com/demo-app",
		Tag:         "v1",
	}, s)
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package artifacts locates the maven artifacts a CI build produced.
package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// ChangedArtifactsFile is where the root gradle build records the
// artifacts affected by the change under test, relative to the repo root.
const ChangedArtifactsFile = "build/m2repository/changed-artifacts.json"

// M2Repository is the local maven repo the build publishes to, relative
// to the repo root.
const M2Repository = "build/m2repository"

// Artifact is one maven coordinate.
type Artifact struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// Key is the versionless coordinate, "group:artifact".
func (a Artifact) Key() string {
	return a.GroupID + ":" + a.ArtifactID
}

// RepoPath is the artifact file path inside a maven repository for the
// given packaging extension ("aar", "jar", "apk").
func (a Artifact) RepoPath(ext string) string {
	return filepath.Join(
		filepath.FromSlash(strings.ReplaceAll(a.GroupID, ".", "/")),
		a.ArtifactID,
		a.Version,
		a.ArtifactID+"-"+a.Version+"."+ext,
	)
}

// changedArtifacts mirrors changed-artifacts.json: coordinate lists for
// the head and base commits of the change.
type changedArtifacts struct {
	HeadGit []string `json:"headGit"`
}

// ParseChanged reads the changed artifacts the build recorded for the
// head commit.
func ParseChanged(path string) ([]Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "read changed artifacts").Err()
	}
	var parsed changedArtifacts
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Annotate(err, "parse %s", path).Err()
	}

	out := make([]Artifact, 0, len(parsed.HeadGit))
	for _, coord := range parsed.HeadGit {
		a, err := Parse(coord)
		if err != nil {
			return nil, errors.Annotate(err, "parse %s", path).Err()
		}
		out = append(out, a)
	}
	return out, nil
}

// Parse splits a "group:artifact:version" coordinate.
func Parse(coord string) (Artifact, error) {
	parts := strings.Split(coord, ":")
	if len(parts) != 3 {
		return Artifact{}, errors.Reason("malformed artifact coordinate %q", coord).Err()
	}
	return Artifact{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
}

// Versions maps versionless coordinates to versions.
func Versions(as []Artifact) map[string]string {
	m := make(map[string]string, len(as))
	for _, a := range as {
		m[a.Key()] = a.Version
	}
	return m
}

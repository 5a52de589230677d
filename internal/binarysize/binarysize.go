// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package binarysize measures the size of the SDK artifacts a change
// produced.
package binarysize

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/artifacts"
)

// Measurement is the size of one artifact file.
type Measurement struct {
	SDK  string `json:"sdk"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Report is what gets posted to the metrics service.
type Report struct {
	Binaries []Measurement `json:"binaries"`
	Log      string        `json:"log"`
}

// packagings are tried in order when locating an artifact file.
var packagings = []string{"aar", "jar"}

// Measure stats the artifact files of the changed artifacts inside the
// local maven repo. Artifacts without a published file are skipped with a
// warning; a partially published repo is a build problem the assemble
// step already surfaced.
func Measure(ctx context.Context, m2repo string, as []artifacts.Artifact) ([]Measurement, error) {
	var out []Measurement
	for _, a := range as {
		m, err := measureOne(m2repo, a)
		if err != nil {
			logging.Warningf(ctx, "No artifact file for %s: %s", a.Key(), err)
			continue
		}
		logging.Infof(ctx, "%s %s: %s", a.Key(), m.Type, humanize.Bytes(uint64(m.Size)))
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, errors.Reason("measure binary sizes: no artifact files found under %s", m2repo).Err()
	}
	return out, nil
}

func measureOne(m2repo string, a artifacts.Artifact) (Measurement, error) {
	var lastErr error
	for _, ext := range packagings {
		fi, err := os.Stat(filepath.Join(m2repo, a.RepoPath(ext)))
		if err != nil {
			lastErr = err
			continue
		}
		return Measurement{SDK: a.ArtifactID, Type: ext, Size: fi.Size()}, nil
	}
	return Measurement{}, lastErr
}

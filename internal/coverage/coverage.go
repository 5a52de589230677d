// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package coverage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Report is what gets posted to the metrics service.
type Report struct {
	Coverage []*SDKCoverage `json:"coverage"`
	Log      string         `json:"log"`
}

// Discover finds the JaCoCo XML reports the coverage build produced,
// looking for build/reports/jacoco trees under repoDir.
func Discover(repoDir string) ([]string, error) {
	var reports []string
	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Dependency caches and checkouts are large and never hold reports.
			if name := d.Name(); name == ".git" || name == ".gradle" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.Contains(rel, "build/reports/jacoco/") && strings.HasSuffix(rel, ".xml") {
			reports = append(reports, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "discover jacoco reports").Err()
	}
	sort.Strings(reports)
	return reports, nil
}

// Collect parses all discovered reports into per-SDK coverage.
func Collect(ctx context.Context, repoDir string) ([]*SDKCoverage, error) {
	paths, err := Discover(repoDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Reason("collect coverage: no jacoco reports under %s", repoDir).Err()
	}

	var out []*SDKCoverage
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Annotate(err, "collect coverage").Err()
		}
		cov, err := ParseReport(f)
		f.Close()
		if err != nil {
			return nil, errors.Annotate(err, "collect coverage: %s", path).Err()
		}
		logging.Infof(ctx, "%s line coverage: %.2f%%", cov.SDK, cov.Coverage*100)
		out = append(out, cov)
	}
	return out, nil
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package macrobenchmark

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"

	"fireci/internal/artifacts"
	"fireci/internal/execute"
	"fireci/internal/gcs"
	"fireci/internal/gradle"
	"fireci/internal/metrics"
	"fireci/internal/site"
)

// maxConcurrentTests caps the number of FTL runs in flight at once.
const maxConcurrentTests = 4

// Orchestrator drives a full macrobenchmark run: assemble the changed
// SDKs, generate a benchmark app per configured SDK, run them on FTL and
// publish the aggregated startup times.
type Orchestrator struct {
	RepoDir   string
	BuildOnly bool

	runner   execute.Runner
	env      site.Environment
	uploader *metrics.Uploader

	// newGCS is stubbed in tests.
	newGCS func(ctx context.Context, bucket string) (gcs.Client, error)
}

// NewOrchestrator returns an Orchestrator running against the given
// repo checkout.
func NewOrchestrator(repoDir string, buildOnly bool, env site.Environment) *Orchestrator {
	r := execute.NewRunner()
	return &Orchestrator{
		RepoDir:   repoDir,
		BuildOnly: buildOnly,
		runner:    r,
		env:       env,
		uploader:  metrics.NewUploader(env.MetricsService, r),
		newGCS:    gcs.NewClient,
	}
}

// Run executes the whole benchmark flow. Test failures of individual
// apps do not abort the others; the successful measurements are still
// uploaded before the failures are reported.
func (o *Orchestrator) Run(ctx context.Context) error {
	versions, err := o.assembleArtifacts(ctx)
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(filepath.Join(o.RepoDir, ConfigPath))
	if err != nil {
		return err
	}

	testDir, err := o.prepareTestDir(ctx)
	if err != nil {
		return err
	}
	logging.Infof(ctx, "Benchmark test apps assemble in %s.", testDir)

	var apps []*testApp
	for _, app := range cfg.TestApps {
		apps = append(apps, newTestApp(app, versions, o.RepoDir, testDir, o.runner, o.env))
	}

	// Builds run sequentially: they share the gradle daemon and the
	// local maven repo.
	for _, app := range apps {
		if err := app.Build(ctx); err != nil {
			return err
		}
	}
	if o.BuildOnly {
		logging.Infof(ctx, "Build-only run. %d test apps assembled.", len(apps))
		return nil
	}

	measurements, testErr := o.test(ctx, apps)

	if len(measurements) > 0 {
		report := Report{Benchmarks: measurements, Log: site.LogLink()}
		if err := o.uploader.Upload(ctx, "macrobenchmark", report); err != nil {
			if testErr == nil {
				return err
			}
			return errors.NewMultiError(testErr, err)
		}
	}
	return testErr
}

// test fans the apps out to FTL and aggregates whatever results made it
// to the bucket. The returned error carries every failed app.
func (o *Orchestrator) test(ctx context.Context, apps []*testApp) ([]Measurement, error) {
	client, err := o.newGCS(ctx, o.env.ResultsBucket)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var mu sync.Mutex
	var measurements []Measurement
	err = parallel.WorkPool(maxConcurrentTests, func(work chan<- func() error) {
		for _, app := range apps {
			app := app
			work <- func() error {
				if err := app.Test(ctx); err != nil {
					return err
				}
				ms, err := aggregate(ctx, client, app.resultsDir, app.cfg.SDK)
				if err != nil {
					return err
				}
				mu.Lock()
				measurements = append(measurements, ms...)
				mu.Unlock()
				return nil
			}
		}
	})
	return measurements, err
}

// assembleArtifacts builds all SDK artifacts into the local maven repo
// and returns the assembled versions keyed by "group:artifact".
func (o *Orchestrator) assembleArtifacts(ctx context.Context) (map[string]string, error) {
	inv := gradle.Invocation{
		RepoDir: o.RepoDir,
		Tasks:   []string{"assembleAllForSmokeTests"},
		Tag:     "assemble",
	}
	if err := gradle.Run(ctx, o.runner, inv); err != nil {
		return nil, errors.Annotate(err, "assemble artifacts").Err()
	}
	changed, err := artifacts.ParseChanged(filepath.Join(o.RepoDir, artifacts.ChangedArtifactsFile))
	if err != nil {
		return nil, err
	}
	return artifacts.Versions(changed), nil
}

// prepareTestDir creates the scratch directory the app projects build
// in, with one shared gradle wrapper.
func (o *Orchestrator) prepareTestDir(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "benchmark-test-")
	if err != nil {
		return "", errors.Annotate(err, "create benchmark test dir").Err()
	}
	// An empty settings file keeps the generated projects out of any
	// enclosing gradle build.
	if err := os.WriteFile(filepath.Join(dir, "settings.gradle"), nil, 0644); err != nil {
		return "", errors.Annotate(err, "create benchmark test dir").Err()
	}
	if err := gradle.Wrapper(ctx, o.runner, o.RepoDir, dir, site.GradleWrapperVersion); err != nil {
		return "", err
	}
	return dir, nil
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package site contains site local constants for the fireci tool.
package site

import (
	"flag"
	"os"
)

// Environment contains environment specific values.
type Environment struct {
	// MetricsService is the base URL of the SDK health metrics service.
	MetricsService string
	// ResultsBucket is the GCS bucket Firebase Test Lab writes benchmark
	// results into.
	ResultsBucket string
	// FTLProject is the cloud project test matrices are billed to.
	FTLProject string
	// FTLDevice is the device spec passed to gcloud firebase test runs.
	FTLDevice string
}

// Prod is the environment for prod.
var Prod = Environment{
	MetricsService: "https://api.firebase-sdk-health-metrics.com",
	ResultsBucket:  "fireescape-benchmark-results",
	FTLProject:     "fireescape-c4819",
	FTLDevice:      "model=oriole,version=32,locale=en,orientation=portrait",
}

// Dev is the environment for dev.
var Dev = Environment{
	MetricsService: "https://staging.api.firebase-sdk-health-metrics.com",
	ResultsBucket:  "fireescape-benchmark-results-staging",
	FTLProject:     "fireescape-staging",
	FTLDevice:      "model=oriole,version=32,locale=en,orientation=portrait",
}

// GradleWrapperVersion is the gradle version generated into test app
// projects that live outside the root gradle build.
const GradleWrapperVersion = "7.5.1"

// EnvFlags controls selection of the environment: prod (default) or dev.
type EnvFlags struct {
	dev bool
}

// Register sets up the -dev flag.
func (f *EnvFlags) Register(fl *flag.FlagSet) {
	fl.BoolVar(&f.dev, "dev", false, "Run in dev environment.")
}

// Env returns the environment, either prod (default) or dev.
func (f EnvFlags) Env() Environment {
	if f.dev {
		return Dev
	}
	return Prod
}

// IsCI reports whether fireci is running under a CI environment, as
// opposed to a developer workstation.
func IsCI() bool {
	return os.Getenv("CI") != ""
}

// LogLink returns a link to the log of the current CI run, or an empty
// string when unavailable.
func LogLink() string {
	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if repo == "" || runID == "" {
		return ""
	}
	return "https://github.com/" + repo + "/actions/runs/" + runID
}

// Commit returns the git commit the current CI run is testing, or an
// empty string when unavailable.
func Commit() string {
	return os.Getenv("GITHUB_SHA")
}

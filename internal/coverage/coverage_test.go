// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package coverage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.chromium.org/luci/common/logging/memlogger"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">
<report name="firebase-common">
  <package name="com/google/firebase/common">
    <sourcefile name="Preconditions.java">
      <counter type="INSTRUCTION" missed="5" covered="45"/>
      <counter type="LINE" missed="2" covered="8"/>
    </sourcefile>
    <sourcefile name="Clock.java">
      <counter type="LINE" missed="0" covered="4"/>
    </sourcefile>
  </package>
  <counter type="LINE" missed="2" covered="12"/>
</report>`

func TestParseReport(t *testing.T) {
	t.Parallel()
	cov, err := ParseReport(strings.NewReader(sampleReport))
	if err != nil {
		t.Fatalf("ParseReport returned %s, want nil", err)
	}
	want := &SDKCoverage{
		SDK:      "firebase-common",
		Coverage: 12.0 / 14.0,
		Files: []FileCoverage{
			{Name: "com/google/firebase/common/Preconditions.java", Coverage: 0.8},
			{Name: "com/google/firebase/common/Clock.java", Coverage: 1.0},
		},
	}
	if diff := cmp.Diff(want, cov, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("coverage mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReport_noLineCounter(t *testing.T) {
	t.Parallel()
	cov, err := ParseReport(strings.NewReader(`<report name="x"><counter type="BRANCH" missed="1" covered="1"/></report>`))
	if err != nil {
		t.Fatalf("ParseReport returned %s, want nil", err)
	}
	if cov.Coverage != 0 {
		t.Errorf("coverage = %v, want 0 without a LINE counter", cov.Coverage)
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	repo := t.TempDir()
	reportDir := filepath.Join(repo, "firebase-common", "build", "reports", "jacoco", "unitTests")
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(reportDir, "report.xml"), []byte(sampleReport), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-report XML outside build/reports/jacoco is ignored.
	if err := os.WriteFile(filepath.Join(repo, "pom.xml"), []byte("<project/>"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Collect(ctx, repo)
	if err != nil {
		t.Fatalf("Collect returned %s, want nil", err)
	}
	if len(got) != 1 || got[0].SDK != "firebase-common" {
		t.Errorf("Collect = %+v, want the single firebase-common report", got)
	}
}

func TestCollect_noReports(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	if _, err := Collect(ctx, t.TempDir()); err == nil {
		t.Error("Collect returned nil, want error when no reports exist")
	}
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gradle

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fireci/internal/execute"
)

func TestRun_composesArgs(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	inv := Invocation{
		RepoDir:    "/repo",
		ProjectDir: "/tmp/apps/startup",
		Tasks:      []string{"assemble"},
		Properties: map[string]string{
			"m2repository": "/repo/build/m2repository",
			"benchmark":    "true",
		},
		Tag: "startup",
	}
	if err := Run(context.Background(), r, inv); err != nil {
		t.Fatalf("Run returned %s, want nil", err)
	}
	want := []string{
		"/repo/gradlew assemble --project-dir /tmp/apps/startup -Pbenchmark=true -Pm2repository=/repo/build/m2repository",
	}
	if diff := cmp.Diff(want, r.Cmdlines()); diff != "" {
		t.Errorf("gradle command mismatch (-want +got):\n%s", diff)
	}
	if got := r.Calls[0].Opts.Tag; got != "startup" {
		t.Errorf("tag = %q, want %q", got, "startup")
	}
}

func TestWrapper(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	if err := Wrapper(context.Background(), r, "/repo", "/tmp/apps", "7.5.1"); err != nil {
		t.Fatalf("Wrapper returned %s, want nil", err)
	}
	want := []string{"/repo/gradlew wrapper --gradle-version 7.5.1 --project-dir /tmp/apps"}
	if diff := cmp.Diff(want, r.Cmdlines()); diff != "" {
		t.Errorf("gradle command mismatch (-want +got):\n%s", diff)
	}
}

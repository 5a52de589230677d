// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gradle drives the repo's gradle wrapper.
package gradle

import (
	"context"
	"path/filepath"
	"sort"

	"fireci/internal/execute"
)

// Invocation describes a single gradle run.
type Invocation struct {
	// RepoDir is the directory holding the gradlew script.
	RepoDir string
	// ProjectDir, when set, is passed as --project-dir.
	ProjectDir string
	// Tasks are the gradle tasks to run.
	Tasks []string
	// Properties are passed as -Pkey=value.
	Properties map[string]string
	// Tag prefixes the streamed build output.
	Tag string
}

// Run executes the gradle wrapper with the invocation's tasks.
func Run(ctx context.Context, r execute.Runner, inv Invocation) error {
	args := append([]string{}, inv.Tasks...)
	if inv.ProjectDir != "" {
		args = append(args, "--project-dir", inv.ProjectDir)
	}
	for _, kv := range sortedPairs(inv.Properties) {
		args = append(args, "-P"+kv)
	}
	opts := execute.Options{Dir: inv.RepoDir, Tag: inv.Tag}
	return r.Run(ctx, opts, wrapperPath(inv.RepoDir), args...)
}

// Wrapper generates a gradle wrapper of the given version into dir, using
// the repo's own wrapper to do so.
func Wrapper(ctx context.Context, r execute.Runner, repoDir, dir, version string) error {
	opts := execute.Options{Dir: repoDir, Tag: "wrapper"}
	return r.Run(ctx, opts, wrapperPath(repoDir),
		"wrapper", "--gradle-version", version, "--project-dir", dir)
}

func wrapperPath(repoDir string) string {
	return filepath.Join(repoDir, "gradlew")
}

func sortedPairs(props map[string]string) []string {
	if len(props) == 0 {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	// Deterministic argv for logs and tests.
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + props[k]
	}
	return pairs
}

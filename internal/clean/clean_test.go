// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package clean

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.chromium.org/luci/common/logging/memlogger"
)

func mustWrite(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func setupRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	mustWrite(t, filepath.Join(repo, "firebase-common", "build.gradle"), 10)
	mustWrite(t, filepath.Join(repo, "firebase-common", "build", "outputs", "common.aar"), 100)
	mustWrite(t, filepath.Join(repo, "firebase-firestore", "build.gradle.kts"), 10)
	mustWrite(t, filepath.Join(repo, "firebase-firestore", "build", "libs", "firestore.jar"), 50)
	// A source directory that happens to be called build but is not output.
	mustWrite(t, filepath.Join(repo, "tools", "build", "main.go"), 10)
	mustWrite(t, filepath.Join(repo, ".gradle", "caches", "blob"), 200)
	return repo
}

func TestClean(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	repo := setupRepo(t)

	reclaimed, err := Clean(ctx, repo, Options{})
	if err != nil {
		t.Fatalf("Clean returned %s, want nil", err)
	}
	if reclaimed != 150 {
		t.Errorf("reclaimed = %d bytes, want 150", reclaimed)
	}
	for _, gone := range []string{
		filepath.Join(repo, "firebase-common", "build"),
		filepath.Join(repo, "firebase-firestore", "build"),
	} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s still exists", gone)
		}
	}
	for _, kept := range []string{
		filepath.Join(repo, "tools", "build", "main.go"),
		filepath.Join(repo, ".gradle", "caches", "blob"),
	} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s was removed: %s", kept, err)
		}
	}
}

func TestClean_deep(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	repo := setupRepo(t)

	reclaimed, err := Clean(ctx, repo, Options{Deep: true})
	if err != nil {
		t.Fatalf("Clean returned %s, want nil", err)
	}
	if reclaimed != 350 {
		t.Errorf("reclaimed = %d bytes, want 350", reclaimed)
	}
	if _, err := os.Stat(filepath.Join(repo, ".gradle")); !os.IsNotExist(err) {
		t.Error(".gradle cache still exists after deep clean")
	}
}

func TestClean_dryRun(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	repo := setupRepo(t)

	reclaimed, err := Clean(ctx, repo, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Clean returned %s, want nil", err)
	}
	if reclaimed != 150 {
		t.Errorf("reclaimed = %d bytes, want 150", reclaimed)
	}
	if _, err := os.Stat(filepath.Join(repo, "firebase-common", "build", "outputs", "common.aar")); err != nil {
		t.Errorf("dry run removed files: %s", err)
	}
}

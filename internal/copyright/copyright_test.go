// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package copyright

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.chromium.org/luci/common/logging/memlogger"
)

const goodHeader = `// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0.

package example
`

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "src", "Good.java"), "/* Copyright 2021 Google LLC */\nclass Good {}\n")
	mustWrite(t, filepath.Join(dir, "src", "Bad.kt"), "class Bad\n")
	mustWrite(t, filepath.Join(dir, "good.go"), goodHeader)
	mustWrite(t, filepath.Join(dir, "bad.gradle"), "apply plugin: 'java'\n")
	// Non-source and generated files are not checked.
	mustWrite(t, filepath.Join(dir, "README.md"), "readme\n")
	mustWrite(t, filepath.Join(dir, "build", "Generated.java"), "class Generated {}\n")
	// Empty files need no header.
	mustWrite(t, filepath.Join(dir, "empty.go"), "")

	missing, err := Scan(ctx, dir)
	if err != nil {
		t.Fatalf("Scan returned %s, want nil", err)
	}
	want := []string{
		filepath.Join(dir, "bad.gradle"),
		filepath.Join(dir, "src", "Bad.kt"),
	}
	if diff := cmp.Diff(want, missing); diff != "" {
		t.Errorf("missing files mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_allClean(t *testing.T) {
	t.Parallel()
	ctx := memlogger.Use(context.Background())
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "ok.go"), goodHeader)

	missing, err := Scan(ctx, dir)
	if err != nil {
		t.Fatalf("Scan returned %s, want nil", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

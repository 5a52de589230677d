// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package changelog

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleChangelog = `# Unreleased
* [changed] Internal refactor of the session handler.

## Kotlin
The Kotlin extensions library has no additional updates.

# 21.0.1
* [fixed] Fixed a crash on API level 21.

# 21.0.0
* [feature] Initial release of the sessions library.
`

func TestParse(t *testing.T) {
	t.Parallel()
	cl, err := Parse(strings.NewReader(sampleChangelog))
	if err != nil {
		t.Fatalf("Parse returned %s, want nil", err)
	}
	var versions []string
	for _, r := range cl.Releases {
		versions = append(versions, r.Version)
	}
	if diff := cmp.Diff([]string{"Unreleased", "21.0.1", "21.0.0"}, versions); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}
	// Subsection headings stay inside the section body.
	if got := cl.Unreleased().Content; !strings.Contains(got, "## Kotlin") {
		t.Errorf("Unreleased content %q lost the Kotlin subsection", got)
	}
	if got := cl.Release("21.0.1").Content; got != "* [fixed] Fixed a crash on API level 21." {
		t.Errorf("21.0.1 content = %q", got)
	}
}

func TestParse_noHeadings(t *testing.T) {
	t.Parallel()
	if _, err := Parse(strings.NewReader("just some text\n")); err == nil {
		t.Error("Parse returned nil, want error for changelog without headings")
	}
}

func TestBump(t *testing.T) {
	t.Parallel()
	cl, err := Parse(strings.NewReader(sampleChangelog))
	if err != nil {
		t.Fatalf("Parse returned %s, want nil", err)
	}
	if err := cl.Bump("21.1.0"); err != nil {
		t.Fatalf("Bump returned %s, want nil", err)
	}

	if got := cl.Unreleased(); got == nil || got.HasEntries() {
		t.Errorf("Unreleased section after bump = %+v, want present and empty", got)
	}
	rel := cl.Release("21.1.0")
	if rel == nil || !strings.Contains(rel.Content, "session handler") {
		t.Fatalf("21.1.0 section = %+v, want the promoted pending notes", rel)
	}

	out := cl.String()
	wantOrder := []string{"# Unreleased", "# 21.1.0", "# 21.0.1", "# 21.0.0"}
	last := -1
	for _, h := range wantOrder {
		i := strings.Index(out, h+"\n")
		if i <= last {
			t.Fatalf("heading %q out of order in:\n%s", h, out)
		}
		last = i
	}
}

func TestBump_rejectsDuplicateAndEmpty(t *testing.T) {
	t.Parallel()
	cl, _ := Parse(strings.NewReader(sampleChangelog))
	if err := cl.Bump("21.0.1"); err == nil {
		t.Error("Bump returned nil for an already released version")
	}
	empty, _ := Parse(strings.NewReader("# Unreleased\n\n# 1.0.0\n* [feature] hello\n"))
	if err := empty.Bump("1.0.1"); err == nil {
		t.Error("Bump returned nil for an empty Unreleased section")
	}
}

func TestParse_roundTrip(t *testing.T) {
	t.Parallel()
	cl, err := Parse(strings.NewReader(sampleChangelog))
	if err != nil {
		t.Fatalf("Parse returned %s, want nil", err)
	}
	again, err := Parse(strings.NewReader(cl.String()))
	if err != nil {
		t.Fatalf("reparse returned %s, want nil", err)
	}
	if diff := cmp.Diff(cl.Releases, again.Releases); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReleaseNotes(t *testing.T) {
	t.Parallel()
	notes, err := ReleaseNotes(NotesInput{
		SDK:     "firebase-firestore",
		Version: "25.1.0",
		Content: "* [fixed] Fixed a latency regression.",
	})
	if err != nil {
		t.Fatalf("ReleaseNotes returned %s, want nil", err)
	}
	want := "### firebase-firestore version 25.1.0 {: #firestore_v25-1-0}\n\n* [fixed] Fixed a latency regression.\n"
	if diff := cmp.Diff(want, notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
}

func TestReleaseNotes_emptySection(t *testing.T) {
	t.Parallel()
	if _, err := ReleaseNotes(NotesInput{SDK: "firebase-auth", Version: "1.0.0", Content: "  \n"}); err == nil {
		t.Error("ReleaseNotes returned nil, want error for empty section")
	}
}

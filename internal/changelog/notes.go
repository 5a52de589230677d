// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package changelog

import (
	"strings"
	"text/template"

	"go.chromium.org/luci/common/errors"
)

var notesTmpl = template.Must(template.New("notes").Parse(
	`### {{.SDK}} version {{.Version}} {: #{{.Anchor}}}

{{.Content}}
`))

// NotesInput describes the release notes to render.
type NotesInput struct {
	// SDK is the product name, e.g. "firebase-firestore".
	SDK string
	// Version is the released version, e.g. "25.1.0".
	Version string
	// Content is the markdown body of the release section.
	Content string
}

// Anchor is the devsite heading anchor for the release, derived from the
// SDK name and version: "firestore_v25-1-0".
func (in NotesInput) Anchor() string {
	name := strings.TrimPrefix(in.SDK, "firebase-")
	version := strings.ReplaceAll(in.Version, ".", "-")
	return name + "_v" + version
}

// ReleaseNotes renders the release-notes block for one released section.
func ReleaseNotes(in NotesInput) (string, error) {
	if strings.TrimSpace(in.Content) == "" {
		return "", errors.Reason("release notes for %s %s: section is empty", in.SDK, in.Version).Err()
	}
	var b strings.Builder
	if err := notesTmpl.Execute(&b, in); err != nil {
		return "", errors.Annotate(err, "render release notes").Err()
	}
	return b.String(), nil
}

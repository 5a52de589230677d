// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package changelog parses per-SDK CHANGELOG.md files and renders release
// notes from them.
package changelog

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// UnreleasedVersion is the heading of the section release notes are
// accumulated into between releases.
const UnreleasedVersion = "Unreleased"

// Release is one top-level section of a changelog: a version heading and
// the markdown below it, up to the next version heading.
type Release struct {
	// Version is the heading text, e.g. "21.0.1" or "Unreleased".
	Version string
	// Content is the raw markdown body of the section, without the
	// heading and without trailing blank lines.
	Content string
}

// HasEntries reports whether the section carries any release notes.
func (r *Release) HasEntries() bool {
	return strings.TrimSpace(r.Content) != ""
}

// Changelog is a parsed CHANGELOG.md, sections in file order.
type Changelog struct {
	Releases []*Release
}

var headingRe = regexp.MustCompile(`^#\s+(.+?)\s*$`)

// Parse reads a changelog. Only top-level "# " headings start sections;
// subsection headings ("## Kotlin") stay part of the section body.
func Parse(r io.Reader) (*Changelog, error) {
	cl := &Changelog{}
	var cur *Release
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimRight(strings.Join(body, "\n"), "\n")
		cl.Releases = append(cl.Releases, cur)
		body = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Release{Version: m[1]}
			continue
		}
		if cur != nil {
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Annotate(err, "parse changelog").Err()
	}
	flush()

	if len(cl.Releases) == 0 {
		return nil, errors.Reason("parse changelog: no version headings found").Err()
	}
	return cl, nil
}

// Release returns the section for a version, or nil when absent.
func (cl *Changelog) Release(version string) *Release {
	for _, r := range cl.Releases {
		if r.Version == version {
			return r
		}
	}
	return nil
}

// Unreleased returns the pending section, or nil when absent.
func (cl *Changelog) Unreleased() *Release {
	return cl.Release(UnreleasedVersion)
}

// Bump promotes the Unreleased section into a released section for the
// given version and starts a fresh empty Unreleased section above it.
func (cl *Changelog) Bump(version string) error {
	if cl.Release(version) != nil {
		return errors.Reason("bump changelog: version %s already released", version).Err()
	}
	pending := cl.Unreleased()
	if pending == nil {
		return errors.Reason("bump changelog: no %s section", UnreleasedVersion).Err()
	}
	if !pending.HasEntries() {
		return errors.Reason("bump changelog: %s section is empty", UnreleasedVersion).Err()
	}

	released := &Release{Version: version, Content: pending.Content}
	pending.Content = ""

	// Insert the released section right below Unreleased.
	for i, r := range cl.Releases {
		if r == pending {
			rest := append([]*Release{released}, cl.Releases[i+1:]...)
			cl.Releases = append(cl.Releases[:i+1:i+1], rest...)
			break
		}
	}
	return nil
}

// String renders the changelog back to markdown.
func (cl *Changelog) String() string {
	var b strings.Builder
	for i, r := range cl.Releases {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("# " + r.Version + "\n")
		if r.HasEntries() {
			b.WriteString(r.Content + "\n")
		}
	}
	return b.String()
}

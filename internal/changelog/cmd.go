// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/cmdlib"
	"fireci/internal/github"
)

// CmdReleaseNotes implements the "release-notes" subcommand.
var CmdReleaseNotes = &subcommands.Command{
	UsageLine: "release-notes -sdk <dir> -version <version> [flags]",
	ShortDesc: "convert a changelog section into release notes",
	LongDesc: `Convert a changelog section into release notes.

Reads <sdk dir>/CHANGELOG.md, renders the release notes for the given
version (or the pending Unreleased section) and writes them to stdout or
-out. With -publish the notes are posted as a GitHub release.`,
	CommandRun: func() subcommands.CommandRun {
		c := &releaseNotesRun{}
		c.common.Register(&c.Flags)
		c.Flags.StringVar(&c.sdk, "sdk", "", "SDK directory relative to the repo root, e.g. firebase-firestore.")
		c.Flags.StringVar(&c.version, "version", "", "Version to render notes for. Empty means the Unreleased section.")
		c.Flags.StringVar(&c.out, "out", "", "File to write the notes to. Empty means stdout.")
		c.Flags.BoolVar(&c.publish, "publish", false, "Create a GitHub release carrying the notes.")
		c.Flags.StringVar(&c.owner, "repo-owner", "firebase", "GitHub repo owner, for -publish.")
		c.Flags.StringVar(&c.repo, "repo-name", "firebase-android-sdk", "GitHub repo name, for -publish.")
		c.Flags.StringVar(&c.token, "token", os.Getenv("GITHUB_TOKEN"), "GitHub access token, for -publish. Defaults to $GITHUB_TOKEN.")
		return c
	},
}

type releaseNotesRun struct {
	subcommands.CommandRunBase
	common  cmdlib.CommonFlags
	sdk     string
	version string
	out     string
	publish bool
	owner   string
	repo    string
	token   string
}

func (c *releaseNotesRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *releaseNotesRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	if c.sdk == "" {
		return cmdlib.NewUsageError(c.Flags, "-sdk is required")
	}
	if c.publish && c.version == "" {
		return cmdlib.NewUsageError(c.Flags, "-publish requires -version")
	}
	ctx := c.common.Context(cli.GetContext(a, c, env))

	path := filepath.Join(c.common.RepoDir, c.sdk, "CHANGELOG.md")
	f, err := os.Open(path)
	if err != nil {
		return errors.Annotate(err, "open changelog").Err()
	}
	defer f.Close()
	cl, err := Parse(f)
	if err != nil {
		return errors.Annotate(err, "parse %s", path).Err()
	}

	version := c.version
	if version == "" {
		version = UnreleasedVersion
	}
	rel := cl.Release(version)
	if rel == nil {
		return errors.Reason("%s has no %q section", path, version).Err()
	}

	notes, err := ReleaseNotes(NotesInput{SDK: sdkName(c.sdk), Version: version, Content: rel.Content})
	if err != nil {
		return err
	}

	if c.out != "" {
		if err := os.WriteFile(c.out, []byte(notes), 0644); err != nil {
			return errors.Annotate(err, "write release notes").Err()
		}
		logging.Infof(ctx, "Release notes written to %s.", c.out)
	} else {
		fmt.Fprint(a.GetOut(), notes)
	}

	if c.publish {
		client := github.NewClient(c.owner, c.repo, c.token)
		tag := fmt.Sprintf("%s-v%s", sdkName(c.sdk), c.version)
		rel, err := client.CreateRelease(ctx, github.Release{
			TagName: tag,
			Name:    fmt.Sprintf("%s %s", sdkName(c.sdk), c.version),
			Body:    notes,
		})
		if err != nil {
			return err
		}
		logging.Infof(ctx, "Release published: %s", rel.HTMLURL)
	}
	return nil
}

func sdkName(dir string) string {
	return filepath.Base(strings.TrimRight(dir, "/"))
}

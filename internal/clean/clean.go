// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package clean removes gradle build output from the repo checkout.
package clean

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/cmdlib"
)

// Options select what gets removed.
type Options struct {
	// Deep also removes .gradle caches.
	Deep bool
	// DryRun reports what would be removed without removing it.
	DryRun bool
}

// Clean removes build directories of gradle projects under repoDir and
// returns the number of bytes reclaimed.
func Clean(ctx context.Context, repoDir string, opts Options) (uint64, error) {
	targets, err := findTargets(repoDir, opts.Deep)
	if err != nil {
		return 0, err
	}

	var reclaimed uint64
	for _, dir := range targets {
		size := dirSize(dir)
		if opts.DryRun {
			logging.Infof(ctx, "Would remove %s (%s)", dir, humanize.Bytes(size))
			reclaimed += size
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return reclaimed, errors.Annotate(err, "clean %s", dir).Err()
		}
		logging.Infof(ctx, "Removed %s (%s)", dir, humanize.Bytes(size))
		reclaimed += size
	}
	return reclaimed, nil
}

// findTargets locates build output directories: "build" directories that
// sit next to a gradle build file, and with deep also ".gradle" caches.
func findTargets(repoDir string, deep bool) ([]string, error) {
	var targets []string
	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git":
			return filepath.SkipDir
		case ".gradle":
			if deep {
				targets = append(targets, path)
			}
			return filepath.SkipDir
		case "build":
			if isGradleProject(filepath.Dir(path)) {
				targets = append(targets, path)
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "scan %s for build output", repoDir).Err()
	}
	return targets, nil
}

func isGradleProject(dir string) bool {
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func dirSize(dir string) uint64 {
	var total uint64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}

// CmdClean implements the "clean" subcommand.
var CmdClean = &subcommands.Command{
	UsageLine: "clean [flags]",
	ShortDesc: "remove gradle build output",
	LongDesc: `Remove gradle build output.

Deletes the build directories of all gradle projects in the checkout.
With -deep, .gradle caches are removed as well.`,
	CommandRun: func() subcommands.CommandRun {
		c := &cleanRun{}
		c.common.Register(&c.Flags)
		c.Flags.BoolVar(&c.deep, "deep", false, "Also remove .gradle caches.")
		c.Flags.BoolVar(&c.dryRun, "dry-run", false, "Only report what would be removed.")
		return c
	},
}

type cleanRun struct {
	subcommands.CommandRunBase
	common cmdlib.CommonFlags
	deep   bool
	dryRun bool
}

func (c *cleanRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *cleanRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := c.common.Context(cli.GetContext(a, c, env))
	reclaimed, err := Clean(ctx, c.common.RepoDir, Options{Deep: c.deep, DryRun: c.dryRun})
	if err != nil {
		return err
	}
	logging.Infof(ctx, "Reclaimed %s.", humanize.Bytes(reclaimed))
	return nil
}

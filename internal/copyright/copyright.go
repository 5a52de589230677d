// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package copyright checks that source files carry a license header.
package copyright

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/cmdlib"
)

// headerRe matches the first lines of an acceptable license header.
var headerRe = regexp.MustCompile(`Copyright \d{4}.* Google LLC`)

// sourceExtensions are the file types required to carry a header.
var sourceExtensions = map[string]bool{
	".java":   true,
	".kt":     true,
	".go":     true,
	".gradle": true,
}

// headerWindow is how far into a file the header must appear; license
// headers sit at the top, below at most a shebang or package line.
const headerWindow = 1024

// Scan walks dir and returns the source files missing a license header,
// sorted.
func Scan(ctx context.Context, dir string) ([]string, error) {
	var missing []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", ".gradle", "build", "third_party":
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		ok, err := hasHeader(path)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "scan %s for license headers", dir).Err()
	}
	sort.Strings(missing)
	logging.Infof(ctx, "Scanned %s: %d files missing a license header.", dir, len(missing))
	return missing, nil
}

func hasHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Annotate(err, "open %s", path).Err()
	}
	defer f.Close()

	buf := make([]byte, headerWindow)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		// Empty files need no header.
		return true, nil
	}
	return headerRe.Match(buf[:n]), nil
}

// CmdCopyrightCheck implements the "copyright-check" subcommand.
var CmdCopyrightCheck = &subcommands.Command{
	UsageLine: "copyright-check [-dir <dir>]",
	ShortDesc: "check source files for license headers",
	LongDesc: `Check source files for license headers.

Scans java, kotlin, go and gradle sources and fails when any of them is
missing a Google LLC copyright header.`,
	CommandRun: func() subcommands.CommandRun {
		c := &copyrightRun{}
		c.common.Register(&c.Flags)
		c.Flags.StringVar(&c.dir, "dir", "", "Directory to scan. Defaults to the repo root.")
		return c
	},
}

type copyrightRun struct {
	subcommands.CommandRunBase
	common cmdlib.CommonFlags
	dir    string
}

func (c *copyrightRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *copyrightRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := c.common.Context(cli.GetContext(a, c, env))
	dir := c.dir
	if dir == "" {
		dir = c.common.RepoDir
	}
	missing, err := Scan(ctx, dir)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		for _, path := range missing {
			fmt.Fprintf(a.GetErr(), "missing license header: %s\n", path)
		}
		return errors.Reason("%d files are missing license headers", len(missing)).Err()
	}
	return nil
}

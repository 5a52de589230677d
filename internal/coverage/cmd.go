// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package coverage

import (
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"fireci/internal/cmdlib"
	"fireci/internal/execute"
	"fireci/internal/gradle"
	"fireci/internal/metrics"
	"fireci/internal/site"
)

// CmdCoverage implements the "coverage" subcommand.
var CmdCoverage = &subcommands.Command{
	UsageLine: "coverage [flags]",
	ShortDesc: "collect unit test line coverage",
	LongDesc: `Collect unit test line coverage.

Runs the coverage gradle task, parses the JaCoCo reports it produces and
uploads per-SDK line coverage to the metrics service.`,
	CommandRun: func() subcommands.CommandRun {
		c := &coverageRun{}
		c.common.Register(&c.Flags)
		c.envFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.noBuild, "no-build", false, "Parse existing reports without running the coverage build.")
		return c
	},
}

type coverageRun struct {
	subcommands.CommandRunBase
	common   cmdlib.CommonFlags
	envFlags site.EnvFlags
	noBuild  bool
}

func (c *coverageRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *coverageRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := c.common.Context(cli.GetContext(a, c, env))
	runner := execute.NewRunner()

	if !c.noBuild {
		inv := gradle.Invocation{RepoDir: c.common.RepoDir, Tasks: []string{"checkCoverage"}, Tag: "coverage"}
		if err := gradle.Run(ctx, runner, inv); err != nil {
			return err
		}
	}

	coverage, err := Collect(ctx, c.common.RepoDir)
	if err != nil {
		return err
	}

	uploader := metrics.NewUploader(c.envFlags.Env().MetricsService, runner)
	return uploader.Upload(ctx, "coverage", Report{Coverage: coverage, Log: site.LogLink()})
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package binarysize

import (
	"path/filepath"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"fireci/internal/artifacts"
	"fireci/internal/cmdlib"
	"fireci/internal/execute"
	"fireci/internal/gradle"
	"fireci/internal/metrics"
	"fireci/internal/site"
)

// CmdBinarySize implements the "binary-size" subcommand.
var CmdBinarySize = &subcommands.Command{
	UsageLine: "binary-size [flags]",
	ShortDesc: "measure SDK artifact sizes",
	LongDesc: `Measure SDK artifact sizes.

Assembles the changed SDKs into the local maven repo, measures the
resulting artifact files and uploads a report to the metrics service.`,
	CommandRun: func() subcommands.CommandRun {
		c := &binarySizeRun{}
		c.common.Register(&c.Flags)
		c.envFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.noBuild, "no-build", false, "Measure an already assembled maven repo without building.")
		return c
	},
}

type binarySizeRun struct {
	subcommands.CommandRunBase
	common   cmdlib.CommonFlags
	envFlags site.EnvFlags
	noBuild  bool
}

func (c *binarySizeRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *binarySizeRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := c.common.Context(cli.GetContext(a, c, env))
	runner := execute.NewRunner()

	if !c.noBuild {
		inv := gradle.Invocation{RepoDir: c.common.RepoDir, Tasks: []string{"assembleAllForSmokeTests"}, Tag: "assemble"}
		if err := gradle.Run(ctx, runner, inv); err != nil {
			return err
		}
	}

	changed, err := artifacts.ParseChanged(filepath.Join(c.common.RepoDir, artifacts.ChangedArtifactsFile))
	if err != nil {
		return err
	}
	measurements, err := Measure(ctx, filepath.Join(c.common.RepoDir, artifacts.M2Repository), changed)
	if err != nil {
		return err
	}

	uploader := metrics.NewUploader(c.envFlags.Env().MetricsService, runner)
	return uploader.Upload(ctx, "binary-size", Report{Binaries: measurements, Log: site.LogLink()})
}

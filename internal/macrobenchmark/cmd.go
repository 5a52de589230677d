// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package macrobenchmark

import (
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"fireci/internal/cmdlib"
	"fireci/internal/site"
)

// CmdMacrobenchmark implements the "macrobenchmark" subcommand.
var CmdMacrobenchmark = &subcommands.Command{
	UsageLine: "macrobenchmark [flags]",
	ShortDesc: "run SDK startup benchmarks on Firebase Test Lab",
	LongDesc: `Run SDK startup benchmarks on Firebase Test Lab.

Generates a benchmark test app per configured SDK against the freshly
assembled artifacts, runs them on FTL in parallel and uploads the
aggregated startup times to the metrics service.`,
	CommandRun: func() subcommands.CommandRun {
		c := &macrobenchmarkRun{}
		c.common.Register(&c.Flags)
		c.envFlags.Register(&c.Flags)
		c.Flags.BoolVar(&c.buildOnly, "build-only", false, "Assemble the test apps without running them on FTL.")
		return c
	},
}

type macrobenchmarkRun struct {
	subcommands.CommandRunBase
	common    cmdlib.CommonFlags
	envFlags  site.EnvFlags
	buildOnly bool
}

func (c *macrobenchmarkRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *macrobenchmarkRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := c.common.Context(cli.GetContext(a, c, env))
	o := NewOrchestrator(c.common.RepoDir, c.buildOnly, c.envFlags.Env())
	return o.Run(ctx)
}

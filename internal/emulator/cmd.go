// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package emulator

import (
	"time"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/cmdlib"
	"fireci/internal/execute"
)

// CmdBootEmulator implements the "boot-emulator" subcommand.
var CmdBootEmulator = &subcommands.Command{
	UsageLine: "boot-emulator -avd NAME [flags]",
	ShortDesc: "launch an emulator and wait until it boots",
	LongDesc: `Launch an emulator and wait until it boots.

Starts a headless emulator instance, blocks until the device finishes
booting and optionally dumps its logcat buffer. Used to vet AVD images
on CI runners before device-dependent test jobs.`,
	CommandRun: func() subcommands.CommandRun {
		c := &bootEmulatorRun{}
		c.Flags.StringVar(&c.avd, "avd", "", "Name of the Android virtual device image.")
		c.Flags.IntVar(&c.port, "port", DefaultPort, "Emulator console port.")
		c.Flags.DurationVar(&c.timeout, "boot-timeout", 10*time.Minute, "How long to wait for the boot to complete.")
		c.Flags.StringVar(&c.logcat, "logcat", "", "If set, dump the logcat buffer to this file after boot.")
		c.Flags.BoolVar(&c.keep, "keep-running", false, "Leave the emulator running instead of shutting it down.")
		return c
	},
}

type bootEmulatorRun struct {
	subcommands.CommandRunBase
	avd     string
	port    int
	timeout time.Duration
	logcat  string
	keep    bool
}

func (c *bootEmulatorRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *bootEmulatorRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	ctx := cli.GetContext(a, c, env)
	if c.avd == "" {
		return cmdlib.NewUsageError(c.Flags, "-avd is required")
	}

	e, err := Start(ctx, execute.NewRunner(), Config{AVD: c.avd, Port: c.port})
	if err != nil {
		return err
	}
	if err := e.WaitBoot(ctx, c.timeout); err != nil {
		return err
	}
	if c.logcat != "" {
		if err := e.Logcat(ctx, c.logcat); err != nil {
			return err
		}
	}
	if c.keep {
		logging.Infof(ctx, "Leaving %s running.", e.Serial())
		return nil
	}
	return e.Kill(ctx)
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command fireci is the CI automation tool for the Firebase Android SDK
// monorepo.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"fireci/internal/binarysize"
	"fireci/internal/changelog"
	"fireci/internal/clean"
	"fireci/internal/copyright"
	"fireci/internal/coverage"
	"fireci/internal/emulator"
	"fireci/internal/macrobenchmark"
	"fireci/internal/workflow"
)

var application = &cli.Application{
	Name:  "fireci",
	Title: "CI automation for the Firebase Android SDK monorepo",
	Context: func(ctx context.Context) context.Context {
		return gologger.StdConfig.Use(ctx)
	},
	Commands: []*subcommands.Command{
		subcommands.CmdHelp,
		subcommands.Section("Hygiene"),
		clean.CmdClean,
		copyright.CmdCopyrightCheck,
		subcommands.Section("Emulator"),
		emulator.CmdBootEmulator,
		subcommands.Section("Collectors"),
		binarysize.CmdBinarySize,
		coverage.CmdCoverage,
		macrobenchmark.CmdMacrobenchmark,
		subcommands.Section("GitHub"),
		workflow.CmdSummary,
		subcommands.Section("Release"),
		changelog.CmdReleaseNotes,
	},
}

func main() {
	os.Exit(subcommands.Run(application, nil))
}

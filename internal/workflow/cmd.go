// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package workflow

import (
	"fmt"
	"os"
	"time"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"fireci/internal/cmdlib"
	"fireci/internal/github"
)

// CmdSummary implements the "workflow-summary" subcommand.
var CmdSummary = &subcommands.Command{
	UsageLine: "workflow-summary [flags]",
	ShortDesc: "report failure rates of a GitHub Actions workflow",
	LongDesc: `Report failure rates of a GitHub Actions workflow.

Collects completed workflow runs and their jobs over the requested time
range and writes workflow_summary.json, job_summary.json and a text
report into the output folder.`,
	CommandRun: func() subcommands.CommandRun {
		c := &summaryRun{}
		c.Flags.StringVar(&c.owner, "repo-owner", "firebase", "GitHub repo owner.")
		c.Flags.StringVar(&c.repo, "repo-name", "firebase-android-sdk", "GitHub repo name.")
		c.Flags.StringVar(&c.token, "token", os.Getenv("GITHUB_TOKEN"), "GitHub access token. Defaults to $GITHUB_TOKEN.")
		c.Flags.StringVar(&c.workflow, "workflow", "ci_tests.yml", "Workflow file name to report on.")
		// Workflow logs are retained for 90 days before GitHub deletes them.
		c.Flags.IntVar(&c.days, "days", 90, "Only include workflow runs created in the past N days.")
		c.Flags.StringVar(&c.branch, "branch", "", "Only include runs against this branch.")
		c.Flags.StringVar(&c.actor, "actor", "", "Only include runs triggered by this user.")
		c.Flags.StringVar(&c.event, "event", "", "Only include runs triggered by this event (push, pull_request, issue).")
		c.Flags.StringVar(&c.jobs, "jobs", "all", "Which job attempts to fetch per run: latest or all.")
		c.Flags.StringVar(&c.folder, "folder", "", "Output folder. Defaults to the current UTC time.")
		return c
	},
}

type summaryRun struct {
	subcommands.CommandRunBase
	owner    string
	repo     string
	token    string
	workflow string
	days     int
	branch   string
	actor    string
	event    string
	jobs     string
	folder   string
}

func (c *summaryRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, env); err != nil {
		cmdlib.PrintError(a, err)
		return 1
	}
	return 0
}

func (c *summaryRun) innerRun(a subcommands.Application, env subcommands.Env) error {
	if c.jobs != "latest" && c.jobs != "all" {
		return cmdlib.NewUsageError(c.Flags, "-jobs must be latest or all, got %q", c.jobs)
	}
	ctx := cli.GetContext(a, c, env)
	now := time.Now().UTC()

	client := github.NewClient(c.owner, c.repo, c.token)
	summary, err := Collect(ctx, client, now, Query{
		Workflow:   c.workflow,
		Days:       c.days,
		Branch:     c.branch,
		Actor:      c.actor,
		Event:      c.event,
		JobsFilter: c.jobs,
	})
	if err != nil {
		return err
	}

	jobs := Summarize(summary)
	report, err := Report(summary, jobs)
	if err != nil {
		return err
	}

	folder := c.folder
	if folder == "" {
		folder = now.Format("2006-01-02+15:04:05")
	}
	if err := Write(folder, summary, jobs, report); err != nil {
		return err
	}
	fmt.Fprintf(a.GetOut(), "%s\nReports written to %s\n", report, folder)
	return nil
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package workflow collects GitHub Actions workflow run history and
// distills it into failure-rate reports.
package workflow

import (
	"context"
	"sort"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"golang.org/x/sync/errgroup"

	"fireci/internal/github"
)

// maxConcurrentJobFetches caps parallel job listing requests so the
// GitHub API rate limit survives long histories.
const maxConcurrentJobFetches = 4

// API is the part of the GitHub client Collect needs.
type API interface {
	ListWorkflowRuns(ctx context.Context, q github.RunsQuery) (*github.WorkflowRunList, error)
	ListWorkflowJobs(ctx context.Context, runID int64, filter string, page int) (*github.JobList, error)
}

// Query selects the workflow history to collect.
type Query struct {
	// Workflow is the workflow file name, e.g. "ci_tests.yml".
	Workflow string
	// Days bounds the history to runs created in the past N days.
	Days int
	// Branch, Actor and Event are optional filters.
	Branch string
	Actor  string
	Event  string
	// JobsFilter is "latest" or "all".
	JobsFilter string
}

// JobRun is one job execution within a workflow run.
type JobRun struct {
	ID          int64     `json:"job_id"`
	Name        string    `json:"job_name"`
	Conclusion  string    `json:"conclusion"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	RunAttempt  int       `json:"run_attempt"`
	HTMLURL     string    `json:"html_url"`
}

// RunJobs aggregates the jobs of one workflow run.
type RunJobs struct {
	TotalCount   int      `json:"total_count"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	JobRuns      []JobRun `json:"job_runs"`
}

// Run is one workflow run with its jobs.
type Run struct {
	WorkflowID   int64     `json:"workflow_id"`
	Conclusion   string    `json:"conclusion"`
	HeadBranch   string    `json:"head_branch"`
	Actor        string    `json:"actor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RunStartedAt time.Time `json:"run_started_at"`
	RunAttempt   int       `json:"run_attempt"`
	HTMLURL      string    `json:"html_url"`
	Jobs         RunJobs   `json:"jobs"`
}

// Runtime is how long the run took, from creation to completion.
func (r *Run) Runtime() time.Duration {
	return r.UpdatedAt.Sub(r.CreatedAt)
}

// Summary is the collected history of one workflow.
type Summary struct {
	WorkflowName string `json:"workflow_name"`
	TotalCount   int    `json:"total_count"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	Created      string `json:"created"`
	WorkflowRuns []*Run `json:"workflow_runs"`
}

// FailureRate is the fraction of collected runs that failed.
func (s *Summary) FailureRate() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(s.TotalCount)
}

// JobStats aggregates all executions of one job name across runs.
type JobStats struct {
	Name         string   `json:"job_name"`
	TotalCount   int      `json:"total_count"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	FailureRate  float64  `json:"failure_rate"`
	FailureJobs  []JobRun `json:"failure_jobs"`
}

// Collect pages through completed runs of the workflow created within
// q.Days and fetches the jobs of every kept run. Only runs concluding in
// success or failure are kept; cancelled and skipped runs say nothing
// about workflow health.
func Collect(ctx context.Context, api API, now time.Time, q Query) (*Summary, error) {
	created := ">" + now.UTC().AddDate(0, 0, -q.Days).Format("2006-01-02T15:04:05Z")
	s := &Summary{WorkflowName: q.Workflow, Created: created}

	logging.Infof(ctx, "Collecting runs of %s created %s...", q.Workflow, created)
	for page := 1; ; page++ {
		runs, err := api.ListWorkflowRuns(ctx, github.RunsQuery{
			Workflow: q.Workflow,
			Status:   "completed",
			Created:  created,
			Branch:   q.Branch,
			Actor:    q.Actor,
			Event:    q.Event,
			Page:     page,
		})
		if err != nil {
			return nil, errors.Annotate(err, "collect workflow summary").Err()
		}
		if len(runs.WorkflowRuns) == 0 {
			break
		}
		for _, r := range runs.WorkflowRuns {
			if r.Conclusion != "success" && r.Conclusion != "failure" {
				continue
			}
			s.WorkflowRuns = append(s.WorkflowRuns, &Run{
				WorkflowID:   r.ID,
				Conclusion:   r.Conclusion,
				HeadBranch:   r.HeadBranch,
				Actor:        r.Actor.Login,
				CreatedAt:    r.CreatedAt,
				UpdatedAt:    r.UpdatedAt,
				RunStartedAt: r.RunStartedAt,
				RunAttempt:   r.RunAttempt,
				HTMLURL:      r.HTMLURL,
			})
			s.TotalCount++
			if r.Conclusion == "success" {
				s.SuccessCount++
			} else {
				s.FailureCount++
			}
		}
	}
	logging.Infof(ctx, "Collected %d runs (%d success, %d failure).", s.TotalCount, s.SuccessCount, s.FailureCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentJobFetches)
	for _, run := range s.WorkflowRuns {
		run := run
		g.Go(func() error {
			return collectJobs(gctx, api, q.JobsFilter, run)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Annotate(err, "collect workflow summary").Err()
	}
	return s, nil
}

func collectJobs(ctx context.Context, api API, filter string, run *Run) error {
	for page := 1; ; page++ {
		jobs, err := api.ListWorkflowJobs(ctx, run.WorkflowID, filter, page)
		if err != nil {
			return err
		}
		for _, j := range jobs.Jobs {
			if j.Conclusion != "success" && j.Conclusion != "failure" {
				continue
			}
			run.Jobs.JobRuns = append(run.Jobs.JobRuns, JobRun{
				ID:          j.ID,
				Name:        j.Name,
				Conclusion:  j.Conclusion,
				CreatedAt:   j.CreatedAt,
				StartedAt:   j.StartedAt,
				CompletedAt: j.CompletedAt,
				RunAttempt:  j.RunAttempt,
				HTMLURL:     j.HTMLURL,
			})
			run.Jobs.TotalCount++
			if j.Conclusion == "success" {
				run.Jobs.SuccessCount++
			} else {
				run.Jobs.FailureCount++
			}
		}
		if len(jobs.Jobs) < github.PageSize {
			return nil
		}
	}
}

// Summarize groups the collected job runs by job name and computes
// per-name failure rates, most broken jobs first.
func Summarize(s *Summary) []*JobStats {
	byName := map[string]*JobStats{}
	var order []string
	for _, run := range s.WorkflowRuns {
		for _, jr := range run.Jobs.JobRuns {
			stats, ok := byName[jr.Name]
			if !ok {
				stats = &JobStats{Name: jr.Name}
				byName[jr.Name] = stats
				order = append(order, jr.Name)
			}
			stats.TotalCount++
			if jr.Conclusion == "success" {
				stats.SuccessCount++
			} else {
				stats.FailureCount++
				stats.FailureJobs = append(stats.FailureJobs, jr)
			}
		}
	}

	all := make([]*JobStats, 0, len(byName))
	for _, name := range order {
		stats := byName[name]
		stats.FailureRate = float64(stats.FailureCount) / float64(stats.TotalCount)
		all = append(all, stats)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].FailureRate != all[j].FailureRate {
			return all[i].FailureRate > all[j].FailureRate
		}
		return all[i].Name < all[j].Name
	})
	return all
}

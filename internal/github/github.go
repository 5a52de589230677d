// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package github is a thin typed client for the parts of the GitHub REST
// API the CI tooling needs: Actions workflow/job listings and releases.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.chromium.org/luci/common/errors"

	"fireci/internal/shared"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// PageSize is the page size list requests ask for, the largest the
// Actions API accepts. A response with fewer rows is the last page.
const PageSize = 100

// StatusError is a non-2xx API response.
type StatusError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the GitHub REST API for a single repository.
type Client struct {
	// BaseURL is the API endpoint, without a trailing slash.
	BaseURL string
	// Owner and Repo identify the repository.
	Owner string
	Repo  string

	token string
	http  *http.Client
}

// NewClient returns a client for the given repository. An empty token
// leaves requests unauthenticated, which is enough for public repos at a
// much lower rate limit.
func NewClient(owner, repo, token string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Owner:   owner,
		Repo:    repo,
		token:   token,
		http:    &http.Client{Timeout: time.Minute},
	}
}

// Actor is the user that triggered a workflow run.
type Actor struct {
	Login string `json:"login"`
}

// WorkflowRun is a single run of a GitHub Actions workflow.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Conclusion   string    `json:"conclusion"`
	HeadBranch   string    `json:"head_branch"`
	Actor        Actor     `json:"actor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RunStartedAt time.Time `json:"run_started_at"`
	RunAttempt   int       `json:"run_attempt"`
	HTMLURL      string    `json:"html_url"`
	JobsURL      string    `json:"jobs_url"`
}

// WorkflowRunList is one page of workflow runs.
type WorkflowRunList struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// Job is a single job run within a workflow run.
type Job struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Conclusion  string    `json:"conclusion"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	RunAttempt  int       `json:"run_attempt"`
	HTMLURL     string    `json:"html_url"`
}

// JobList is one page of jobs.
type JobList struct {
	TotalCount int   `json:"total_count"`
	Jobs       []Job `json:"jobs"`
}

// RunsQuery filters ListWorkflowRuns.
type RunsQuery struct {
	// Workflow is the workflow file name, e.g. "ci_tests.yml".
	Workflow string
	// Status filters by run status, e.g. "completed".
	Status string
	// Created is a search range, e.g. ">2023-01-15T00:00:00Z".
	Created string
	// Branch, Actor and Event are optional filters.
	Branch string
	Actor  string
	Event  string
	// Page is the 1-based page index.
	Page int
}

// ListWorkflowRuns returns one page of runs of a workflow.
func (c *Client) ListWorkflowRuns(ctx context.Context, q RunsQuery) (*WorkflowRunList, error) {
	v := url.Values{}
	v.Set("per_page", strconv.Itoa(PageSize))
	v.Set("page", strconv.Itoa(q.Page))
	setIfNonEmpty(v, "status", q.Status)
	setIfNonEmpty(v, "created", q.Created)
	setIfNonEmpty(v, "branch", q.Branch)
	setIfNonEmpty(v, "actor", q.Actor)
	setIfNonEmpty(v, "event", q.Event)
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/runs", c.Owner, c.Repo, url.PathEscape(q.Workflow))

	runs := &WorkflowRunList{}
	if err := c.get(ctx, path, v, runs); err != nil {
		return nil, errors.Annotate(err, "list workflow runs for %s", q.Workflow).Err()
	}
	return runs, nil
}

// ListWorkflowJobs returns one page of jobs of a workflow run. filter is
// "latest" or "all" (whether rerun jobs are included).
func (c *Client) ListWorkflowJobs(ctx context.Context, runID int64, filter string, page int) (*JobList, error) {
	v := url.Values{}
	v.Set("per_page", strconv.Itoa(PageSize))
	v.Set("page", strconv.Itoa(page))
	setIfNonEmpty(v, "filter", filter)
	path := fmt.Sprintf("/repos/%s/%s/actions/runs/%d/jobs", c.Owner, c.Repo, runID)

	jobs := &JobList{}
	if err := c.get(ctx, path, v, jobs); err != nil {
		return nil, errors.Annotate(err, "list jobs for run %d", runID).Err()
	}
	return jobs, nil
}

// Release is a GitHub release.
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	Draft   bool   `json:"draft"`
	HTMLURL string `json:"html_url,omitempty"`
}

// CreateRelease creates a release and returns it with server-side fields
// populated.
func (c *Client) CreateRelease(ctx context.Context, r Release) (*Release, error) {
	path := fmt.Sprintf("/repos/%s/%s/releases", c.Owner, c.Repo)
	created := &Release{}
	if err := c.post(ctx, path, r, created); err != nil {
		return nil, errors.Annotate(err, "create release %s", r.TagName).Err()
	}
	return created, nil
}

func (c *Client) get(ctx context.Context, path string, v url.Values, out interface{}) error {
	// Transient server errors are worth one quick retry. Client errors
	// are final and end the retry loop immediately.
	var final error
	err := shared.DoWithRetry(ctx, shared.ShortOpts, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+v.Encode(), nil)
		if err != nil {
			return err
		}
		err = c.do(req, out)
		var se *StatusError
		if errors.As(err, &se) && se.Status < 500 {
			final = err
			return nil
		}
		return err
	})
	if final != nil {
		return final
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Method: req.Method, Path: req.URL.Path, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func setIfNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

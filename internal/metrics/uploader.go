// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics posts collector reports to the SDK health metrics
// service.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/execute"
	"fireci/internal/site"
)

// Uploader posts metric reports for the commit under test.
type Uploader struct {
	// Service is the base URL of the metrics service.
	Service string

	http    *http.Client
	tokenFn func(ctx context.Context) (string, error)
}

// NewUploader returns an Uploader authenticating with the identity of
// the active gcloud account.
func NewUploader(service string, r execute.Runner) *Uploader {
	return &Uploader{
		Service: service,
		http:    &http.Client{Timeout: time.Minute},
		tokenFn: func(ctx context.Context) (string, error) {
			return r.Output(ctx, execute.Options{Tag: "gcloud"}, "gcloud", "auth", "print-identity-token")
		},
	}
}

// Upload posts the report for the given metric against the commit the CI
// run is testing. Outside CI the upload is skipped so local runs stay
// side-effect free.
func (u *Uploader) Upload(ctx context.Context, metric string, report interface{}) error {
	if !site.IsCI() {
		logging.Infof(ctx, "Running locally. %s report upload skipped.", metric)
		return nil
	}
	repo := os.Getenv("GITHUB_REPOSITORY")
	commit := site.Commit()
	if repo == "" || commit == "" {
		return errors.Reason("upload %s report: GITHUB_REPOSITORY and GITHUB_SHA must be set under CI", metric).Err()
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Annotate(err, "upload %s report", metric).Err()
	}
	token, err := u.tokenFn(ctx)
	if err != nil {
		return errors.Annotate(err, "upload %s report: fetch identity token", metric).Err()
	}

	endpoint := fmt.Sprintf("%s/repos/%s/commits/%s/reports?metric=%s",
		u.Service, repo, commit, url.QueryEscape(metric))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Annotate(err, "upload %s report", metric).Err()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := u.http.Do(req)
	if err != nil {
		return errors.Annotate(err, "upload %s report", metric).Err()
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Reason("upload %s report: HTTP %d: %s", metric, resp.StatusCode, body).Err()
	}
	logging.Infof(ctx, "%s report uploaded for commit %s.", metric, commit)
	return nil
}

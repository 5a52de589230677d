// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package shared holds small helpers used across fireci packages.
package shared

import (
	"context"
	"math"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Options wraps retry options.
type Options struct {
	BaseDelay   time.Duration // backoff base delay
	BackoffBase float64       // base for exponential backoff
	Retries     int           // allowed number of retries
}

// DoFunc is a function that can be retried by DoWithRetry if the return
// error is not nil.
type DoFunc func() error

var (
	// DefaultOpts is the default retry policy (~5 minutes).
	DefaultOpts = Options{BaseDelay: 10 * time.Second, BackoffBase: 2.0, Retries: 5}
	// ShortOpts is for operations that need rapid results.
	ShortOpts = Options{BaseDelay: 500 * time.Millisecond, BackoffBase: 1.0, Retries: 1}
	// NoRetryOpts is for unretriable requests or testing.
	NoRetryOpts = Options{BaseDelay: 0, BackoffBase: 1.0, Retries: 0}
)

// DoWithRetry executes doFunc, retrying with exponential backoff until the
// allowed number of retries is exhausted or ctx is done.
//
// If opts.Retries == 0 doFunc runs exactly once. If opts.Retries < 0 it is
// retried indefinitely.
func DoWithRetry(ctx context.Context, opts Options, doFunc DoFunc) error {
	var err error
	for i := 0; opts.Retries < 0 || i <= opts.Retries; i++ {
		var d time.Duration
		if i > 0 {
			d = time.Duration(float64(opts.BaseDelay) * math.Pow(opts.BackoffBase, float64(i-1)))
			logging.Debugf(ctx, "Sleeping for %s before trying again", d)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			if err = doFunc(); err == nil {
				return nil
			}
			logging.Debugf(ctx, "DoWithRetry [%d]: %s", i, err)
		}
	}
	return errors.Annotate(err, "failed after %d retries", opts.Retries).Err()
}

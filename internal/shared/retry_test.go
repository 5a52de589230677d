// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package shared

import (
	"context"
	"testing"
	"time"

	"go.chromium.org/luci/common/errors"
)

func TestDoWithRetry_succeedsAfterFailures(t *testing.T) {
	t.Parallel()
	calls := 0
	err := DoWithRetry(context.Background(), Options{BaseDelay: time.Millisecond, BackoffBase: 1.0, Retries: 3}, func() error {
		calls++
		if calls < 3 {
			return errors.Reason("transient").Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("DoWithRetry returned %s, want nil", err)
	}
	if calls != 3 {
		t.Errorf("doFunc ran %d times, want 3", calls)
	}
}

func TestDoWithRetry_exhaustsRetries(t *testing.T) {
	t.Parallel()
	calls := 0
	err := DoWithRetry(context.Background(), Options{BaseDelay: time.Millisecond, BackoffBase: 1.0, Retries: 2}, func() error {
		calls++
		return errors.Reason("still broken").Err()
	})
	if err == nil {
		t.Fatal("DoWithRetry returned nil, want error")
	}
	if calls != 3 {
		t.Errorf("doFunc ran %d times, want 3", calls)
	}
}

func TestDoWithRetry_noRetries(t *testing.T) {
	t.Parallel()
	calls := 0
	_ = DoWithRetry(context.Background(), NoRetryOpts, func() error {
		calls++
		return errors.Reason("nope").Err()
	})
	if calls != 1 {
		t.Errorf("doFunc ran %d times, want 1", calls)
	}
}

func TestDoWithRetry_respectsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DoWithRetry(ctx, DefaultOpts, func() error {
		return errors.Reason("should keep retrying").Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoWithRetry returned %s, want context.Canceled", err)
	}
}

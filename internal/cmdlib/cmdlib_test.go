// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmdlib

import (
	"context"
	"flag"
	"io"
	"testing"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
)

func TestCommonFlags_defaults(t *testing.T) {
	var f CommonFlags
	fl := flag.NewFlagSet("test", flag.ContinueOnError)
	fl.SetOutput(io.Discard)
	f.Register(fl)
	if err := fl.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if want := MustGetwd(); f.RepoDir != want {
		t.Errorf("RepoDir = %q, want the working directory %q", f.RepoDir, want)
	}
	if f.Verbose {
		t.Error("Verbose defaults to true, want false")
	}
}

func TestCommonFlags_verboseContext(t *testing.T) {
	var f CommonFlags
	fl := flag.NewFlagSet("test", flag.ContinueOnError)
	fl.SetOutput(io.Discard)
	f.Register(fl)
	if err := fl.Parse([]string{"-verbose"}); err != nil {
		t.Fatal(err)
	}

	ctx := f.Context(memlogger.Use(context.Background()))
	if got := logging.GetLevel(ctx); got != logging.Debug {
		t.Errorf("logging level = %s, want debug", got)
	}
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package execute

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
)

func testContext() (context.Context, *memlogger.MemLogger) {
	ctx := memlogger.Use(context.Background())
	ctx = logging.SetLevel(ctx, logging.Debug)
	return ctx, logging.Get(ctx).(*memlogger.MemLogger)
}

func TestRun_streamsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx, log := testContext()
	r := NewRunner()
	if err := r.Run(ctx, Options{Tag: "sdk"}, "sh", "-c", "echo hello; echo world >&2"); err != nil {
		t.Fatalf("Run returned %s, want nil", err)
	}
	var found bool
	for _, m := range log.Messages() {
		if strings.Contains(m.Msg, "[sdk]") && strings.Contains(m.Msg, "hello") {
			found = true
		}
	}
	if !found {
		t.Errorf("stdout line was not streamed to the log: %v", log.Messages())
	}
}

func TestRun_nonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx, _ := testContext()
	r := NewRunner()
	err := r.Run(ctx, Options{}, "sh", "-c", "exit 7")
	if err == nil {
		t.Fatal("Run returned nil, want error")
	}
	if !strings.Contains(err.Error(), "return code 7") {
		t.Errorf("Run error %q does not mention the exit code", err)
	}
}

func TestOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx, _ := testContext()
	r := NewRunner()
	out, err := r.Output(ctx, Options{}, "sh", "-c", "echo ' token '")
	if err != nil {
		t.Fatalf("Output returned %s, want nil", err)
	}
	if out != "token" {
		t.Errorf("Output = %q, want %q", out, "token")
	}
}

func TestStart_killTerminatesProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx, _ := testContext()
	r := NewRunner()
	p, err := r.Start(ctx, Options{}, "sh", "-c", "sleep 60")
	if err != nil {
		t.Fatalf("Start returned %s, want nil", err)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill returned %s, want nil", err)
	}
	if err := p.Wait(); err == nil {
		t.Error("Wait returned nil for a killed process")
	}
}

func TestStreamLines_overlongLine(t *testing.T) {
	t.Parallel()
	ctx, log := testContext()

	// A single line larger than the scanner buffer must not stall the
	// stream: the rest of the reader still gets consumed.
	long := strings.Repeat("x", 2*1024*1024)
	r := strings.NewReader("before\n" + long + "\nafter\n")

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		streamLines(ctx, &wg, "[sdk]", r)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("streamLines did not return for an overlong line")
	}

	if r.Len() != 0 {
		t.Errorf("reader not drained, %d bytes left", r.Len())
	}
	var warned bool
	for _, m := range log.Messages() {
		if m.Level == logging.Warning && strings.Contains(m.Msg, "Output dropped") {
			warned = true
		}
	}
	if !warned {
		t.Error("dropped output was not logged as a warning")
	}
}

func TestNewTag_defaultsToExecutable(t *testing.T) {
	tag := newTag(Options{}, "gradle")
	if !strings.Contains(tag, "[gradle]") {
		t.Errorf("newTag = %q, want it to contain [gradle]", tag)
	}
}

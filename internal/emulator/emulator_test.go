// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package emulator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fireci/internal/execute"
)

func newTestEmulator(r execute.Runner) *Emulator {
	return &Emulator{
		cfg:         Config{AVD: "api32", Port: 5556},
		runner:      r,
		done:        make(chan error, 1),
		killTimeout: 10 * time.Millisecond,
	}
}

func TestStart_composesArgs(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	e, err := Start(context.Background(), r, Config{AVD: "api32"})
	if err != nil {
		t.Fatalf("Start returned %s, want nil", err)
	}
	if got := e.Serial(); got != "emulator-5554" {
		t.Errorf("Serial = %q, want emulator-5554", got)
	}
	want := []string{"emulator -avd api32 -port 5554 -no-window -no-audio -no-boot-anim -wipe-data"}
	if diff := cmp.Diff(want, r.Cmdlines()); diff != "" {
		t.Errorf("launch command mismatch (-want +got):\n%s", diff)
	}
	r.Procs[0].Exit(nil)
}

func TestStart_requiresAVD(t *testing.T) {
	t.Parallel()
	if _, err := Start(context.Background(), &execute.FakeRunner{}, Config{}); err == nil {
		t.Error("Start returned nil, want error for missing AVD")
	}
}

func TestWaitBoot(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{Outputs: map[string]string{"getprop sys.boot_completed": "1"}}
	e := newTestEmulator(r)
	if err := e.WaitBoot(context.Background(), time.Minute); err != nil {
		t.Fatalf("WaitBoot returned %s, want nil", err)
	}
	line := r.Cmdlines()[0]
	if !strings.Contains(line, "adb -s emulator-5556 shell getprop sys.boot_completed") {
		t.Errorf("unexpected adb poll command %q", line)
	}
}

func TestWaitBoot_emulatorDied(t *testing.T) {
	t.Parallel()
	e := newTestEmulator(&execute.FakeRunner{})
	e.done <- nil // launch subprocess exited before boot
	err := e.WaitBoot(context.Background(), time.Minute)
	if err == nil || !strings.Contains(err.Error(), "exited before boot") {
		t.Errorf("WaitBoot = %v, want emulator-died error", err)
	}
}

func TestKill(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	proc := &execute.FakeProcess{}
	e := newTestEmulator(r)
	e.proc = proc
	e.done <- nil // process exits once the console kill lands
	if err := e.Kill(context.Background()); err != nil {
		t.Fatalf("Kill returned %s, want nil", err)
	}
	want := []string{"adb -s emulator-5556 emu kill"}
	if diff := cmp.Diff(want, r.Cmdlines()); diff != "" {
		t.Errorf("kill command mismatch (-want +got):\n%s", diff)
	}
	if proc.Killed() {
		t.Error("process was killed even though the console kill worked")
	}
}

func TestKill_fallsBackToProcessKill(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	e, err := Start(context.Background(), r, Config{AVD: "api32", Port: 5556})
	if err != nil {
		t.Fatalf("Start returned %s, want nil", err)
	}
	e.killTimeout = 10 * time.Millisecond

	// The console kill lands but the process hangs around.
	if err := e.Kill(context.Background()); err != nil {
		t.Fatalf("Kill returned %s, want nil", err)
	}
	if !r.Procs[0].Killed() {
		t.Error("hung emulator process was not killed")
	}
}

func TestLogcat(t *testing.T) {
	t.Parallel()
	r := &execute.FakeRunner{}
	e := newTestEmulator(r)
	if err := e.Logcat(context.Background(), "/tmp/logcat.txt"); err != nil {
		t.Fatalf("Logcat returned %s, want nil", err)
	}
	want := []string{"adb -s emulator-5556 logcat -d -f /tmp/logcat.txt"}
	if diff := cmp.Diff(want, r.Cmdlines()); diff != "" {
		t.Errorf("logcat command mismatch (-want +got):\n%s", diff)
	}
}

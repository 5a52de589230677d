// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package emulator manages Android emulator instances for on-device
// collectors running outside a device farm.
package emulator

import (
	"context"
	"fmt"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/execute"
	"fireci/internal/shared"
)

// DefaultPort is the console port the first emulator instance binds to.
const DefaultPort = 5554

// Config describes the emulator instance to launch.
type Config struct {
	// AVD is the name of the Android virtual device image.
	AVD string
	// Port is the emulator console port; the adb serial is derived from it.
	// Zero means DefaultPort.
	Port int
}

// killTimeout is how long a console kill gets before the process is
// killed outright.
const killTimeout = 30 * time.Second

// Emulator is a handle to a launched emulator instance.
type Emulator struct {
	cfg         Config
	runner      execute.Runner
	proc        execute.Process
	done        chan error
	killTimeout time.Duration
}

// Serial returns the adb serial of the instance, e.g. "emulator-5554".
func (e *Emulator) Serial() string {
	return fmt.Sprintf("emulator-%d", e.cfg.Port)
}

// Start launches a headless emulator and returns immediately with a
// handle. Use WaitBoot to block until the device is usable.
func Start(ctx context.Context, r execute.Runner, cfg Config) (*Emulator, error) {
	if cfg.AVD == "" {
		return nil, errors.Reason("start emulator: AVD name is required").Err()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	logging.Infof(ctx, "Launching emulator %q on port %d...", cfg.AVD, cfg.Port)
	proc, err := r.Start(ctx, execute.Options{Tag: "emulator"},
		"emulator",
		"-avd", cfg.AVD,
		"-port", fmt.Sprintf("%d", cfg.Port),
		"-no-window", "-no-audio", "-no-boot-anim",
		"-wipe-data")
	if err != nil {
		return nil, errors.Annotate(err, "start emulator").Err()
	}

	e := &Emulator{cfg: cfg, runner: r, proc: proc, done: make(chan error, 1), killTimeout: killTimeout}
	go func() { e.done <- proc.Wait() }()
	return e, nil
}

// WaitBoot blocks until the emulator finishes booting or the timeout
// elapses. The emulator reports readiness through the sys.boot_completed
// system property.
func (e *Emulator) WaitBoot(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// An emulator process that exits during the boot wait is a final
	// failure; cancel the poll loop instead of retrying into it.
	var died error
	opts := shared.Options{BaseDelay: 5 * time.Second, BackoffBase: 1.0, Retries: -1}
	err := shared.DoWithRetry(ctx, opts, func() error {
		select {
		case err := <-e.done:
			if err == nil {
				err = errors.Reason("emulator exited before boot completed").Err()
			}
			e.done <- err
			died = err
			cancel()
			return died
		default:
		}
		out, err := e.adb(ctx, "shell", "getprop", "sys.boot_completed")
		if err != nil {
			return err
		}
		if out != "1" {
			return errors.Reason("sys.boot_completed = %q", out).Err()
		}
		return nil
	})
	if died != nil {
		return errors.Annotate(died, "wait for %s to boot", e.Serial()).Err()
	}
	if err != nil {
		return errors.Annotate(err, "wait for %s to boot", e.Serial()).Err()
	}
	logging.Infof(ctx, "Emulator %s booted.", e.Serial())
	return nil
}

// Logcat dumps the accumulated logcat buffer of the instance to a file.
func (e *Emulator) Logcat(ctx context.Context, path string) error {
	err := e.runner.Run(ctx, execute.Options{Tag: "adb"},
		"adb", "-s", e.Serial(), "logcat", "-d", "-f", path)
	return errors.Annotate(err, "dump logcat for %s", e.Serial()).Err()
}

// Kill shuts the emulator down through the console and falls back to
// killing the process when the console kill does not take effect.
func (e *Emulator) Kill(ctx context.Context) error {
	if _, err := e.adb(ctx, "emu", "kill"); err != nil {
		return errors.Annotate(err, "kill %s", e.Serial()).Err()
	}
	select {
	case <-e.done:
		return nil
	case <-time.After(e.killTimeout):
		logging.Warningf(ctx, "Emulator %s did not exit after console kill; killing the process.", e.Serial())
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := e.proc.Kill(); err != nil {
		return errors.Annotate(err, "kill %s", e.Serial()).Err()
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (e *Emulator) adb(ctx context.Context, args ...string) (string, error) {
	argv := append([]string{"-s", e.Serial()}, args...)
	return e.runner.Output(ctx, execute.Options{Tag: "adb"}, "adb", argv...)
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package execute runs external tools (gradle, gcloud, adb) on behalf of
// fireci subcommands, streaming their output into the log.
package execute

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Options control how a subprocess is run.
type Options struct {
	// Dir is the working directory of the subprocess. Empty means the
	// current directory.
	Dir string
	// Env is extra environment in KEY=VALUE form, appended to os.Environ.
	Env []string
	// Tag prefixes every logged output line, e.g. the SDK a build belongs
	// to. Empty means the executable name is used.
	Tag string
}

// Runner runs external commands. The indirection exists so command
// packages can be tested without spawning real subprocesses.
type Runner interface {
	// Run executes the command, streaming its output to the log.
	Run(ctx context.Context, opts Options, name string, args ...string) error
	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, opts Options, name string, args ...string) (string, error)
	// Start launches the command without waiting for it, streaming its
	// output to the log. The returned handle owns the process.
	Start(ctx context.Context, opts Options, name string, args ...string) (Process, error)
}

// Process is a handle to a subprocess launched with Start.
type Process interface {
	// Wait blocks until the process exits. A non-zero exit is an error.
	Wait() error
	// Kill terminates the process. Wait still reaps it.
	Kill() error
}

// NewRunner returns the Runner backed by os/exec.
func NewRunner() Runner {
	return &execRunner{}
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, opts Options, name string, args ...string) error {
	p, err := r.Start(ctx, opts, name, args...)
	if err != nil {
		return err
	}
	return p.Wait()
}

func (r *execRunner) Start(ctx context.Context, opts Options, name string, args ...string) (Process, error) {
	cmd := command(ctx, opts, name, args...)
	tag := newTag(opts, name)
	logging.Infof(ctx, "%s Executing command: %q...", tag, cmdline(name, args))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Annotate(err, "run %s", name).Err()
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Annotate(err, "run %s", name).Err()
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Annotate(err, "run %s", name).Err()
	}

	p := &process{ctx: ctx, cmd: cmd, tag: tag, name: name, args: args}
	p.wg.Add(2)
	go streamLines(ctx, &p.wg, tag, stdout)
	go streamLines(ctx, &p.wg, tag, stderr)
	return p, nil
}

type process struct {
	ctx  context.Context
	cmd  *exec.Cmd
	wg   sync.WaitGroup
	tag  string
	name string
	args []string
}

func (p *process) Wait() error {
	p.wg.Wait()
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Reason("%q exited with return code %d", cmdline(p.name, p.args), exitErr.ExitCode()).Err()
		}
		return errors.Annotate(err, "run %s", p.name).Err()
	}
	logging.Infof(p.ctx, "%s %q finished.", p.tag, cmdline(p.name, p.args))
	return nil
}

func (p *process) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil {
		return errors.Annotate(err, "kill %s", p.name).Err()
	}
	return nil
}

func (r *execRunner) Output(ctx context.Context, opts Options, name string, args ...string) (string, error) {
	cmd := command(ctx, opts, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Annotate(err, "run %s: %s", name, strings.TrimSpace(stderr.String())).Err()
	}
	return strings.TrimSpace(string(out)), nil
}

func command(ctx context.Context, opts Options, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	return cmd
}

func streamLines(ctx context.Context, wg *sync.WaitGroup, tag string, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logging.Infof(ctx, "%s %s", tag, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		// Keep draining the pipe so the child never blocks on a full
		// buffer once scanning stops.
		logging.Warningf(ctx, "%s Output dropped: %s", tag, err)
		io.Copy(io.Discard, r)
	}
}

func cmdline(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

const resetCode = "\x1b[m"

// newTag decorates the log prefix for a subprocess to make interleaved
// output from parallel builds distinguishable. Colors are only emitted
// when stderr is a terminal.
func newTag(opts Options, name string) string {
	tag := opts.Tag
	if tag == "" {
		tag = name
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return "[" + tag + "]"
	}
	// 8-bit ANSI colors 16-231 exclude the grayscale ramp.
	code := 16 + rand.Intn(216)
	return fmt.Sprintf("\x1b[38;5;%dm[%s]%s", code, tag, resetCode)
}

// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package execute

import (
	"context"
	"strings"
	"sync"

	"go.chromium.org/luci/common/errors"
)

// Call records one command handed to a FakeRunner.
type Call struct {
	Opts Options
	Name string
	Args []string
}

// Cmdline renders the call as a single shell-like string.
func (c Call) Cmdline() string {
	return cmdline(c.Name, c.Args)
}

// FakeRunner implements Runner for tests. It records every call and can
// be primed with canned outputs and failures keyed by command substring.
type FakeRunner struct {
	Calls []Call
	// Outputs maps a substring of the command line to the stdout Output
	// returns for it.
	Outputs map[string]string
	// Failures maps a substring of the command line to an error both Run
	// and Output return for it.
	Failures map[string]error
	// Procs holds the handle of every Start call, in order.
	Procs []*FakeProcess
}

var _ Runner = (*FakeRunner)(nil)

func (f *FakeRunner) Run(ctx context.Context, opts Options, name string, args ...string) error {
	f.Calls = append(f.Calls, Call{Opts: opts, Name: name, Args: args})
	return f.failureFor(cmdline(name, args))
}

func (f *FakeRunner) Output(ctx context.Context, opts Options, name string, args ...string) (string, error) {
	f.Calls = append(f.Calls, Call{Opts: opts, Name: name, Args: args})
	line := cmdline(name, args)
	if err := f.failureFor(line); err != nil {
		return "", err
	}
	for substr, out := range f.Outputs {
		if strings.Contains(line, substr) {
			return out, nil
		}
	}
	return "", nil
}

func (f *FakeRunner) Start(ctx context.Context, opts Options, name string, args ...string) (Process, error) {
	f.Calls = append(f.Calls, Call{Opts: opts, Name: name, Args: args})
	if err := f.failureFor(cmdline(name, args)); err != nil {
		return nil, err
	}
	p := &FakeProcess{}
	f.Procs = append(f.Procs, p)
	return p, nil
}

// FakeProcess is the Process handle FakeRunner.Start returns. It runs
// until Exit or Kill is called.
type FakeProcess struct {
	mu      sync.Mutex
	exited  chan struct{}
	waitErr error
	killed  bool
}

func (p *FakeProcess) Wait() error {
	p.mu.Lock()
	ch := p.ch()
	p.mu.Unlock()
	<-ch
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	p.exit(nil)
	return nil
}

// Exit makes the fake process terminate with the given error.
func (p *FakeProcess) Exit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exit(err)
}

// Killed reports whether Kill was called.
func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *FakeProcess) ch() chan struct{} {
	if p.exited == nil {
		p.exited = make(chan struct{})
	}
	return p.exited
}

func (p *FakeProcess) exit(err error) {
	ch := p.ch()
	select {
	case <-ch:
	default:
		p.waitErr = err
		close(ch)
	}
}

// Cmdlines returns the command lines of all recorded calls, in order.
func (f *FakeRunner) Cmdlines() []string {
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.Cmdline()
	}
	return lines
}

func (f *FakeRunner) failureFor(line string) error {
	for substr, err := range f.Failures {
		if strings.Contains(line, substr) {
			return errors.Annotate(err, "%q", line).Err()
		}
	}
	return nil
}

// Copyright 2022 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cmdlib contains shared plumbing for fireci subcommands.
package cmdlib

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/logging"
)

// CommonFlags are flags shared by all fireci subcommands.
type CommonFlags struct {
	// RepoDir is the root of the SDK monorepo checkout.
	RepoDir string
	// Verbose lowers the logging threshold to debug.
	Verbose bool
}

// Register sets up the common flags.
func (f *CommonFlags) Register(fl *flag.FlagSet) {
	fl.StringVar(&f.RepoDir, "repo-dir", MustGetwd(), "Root directory of the SDK repo checkout.")
	fl.BoolVar(&f.Verbose, "verbose", false, "Log at debug level.")
}

// Context applies the common flags to the command context.
func (f CommonFlags) Context(ctx context.Context) context.Context {
	if f.Verbose {
		return logging.SetLevel(ctx, logging.Debug)
	}
	return ctx
}

// UserErrorReporter reports a detailed error message to the user.
//
// PrintError() uses a UserErrorReporter to print multi-line user error details
// along with the actual error.
type UserErrorReporter interface {
	// Report a user-friendly error through w.
	ReportUserError(w io.Writer)
}

// PrintError reports errors back to the user.
//
// Detailed error information is printed if err is a UserErrorReporter.
func PrintError(a subcommands.Application, err error) {
	if u, ok := err.(UserErrorReporter); ok {
		u.ReportUserError(a.GetErr())
	} else {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
	}
}

// NewUsageError creates a new error that also reports flags usage error
// details.
func NewUsageError(flags flag.FlagSet, format string, a ...interface{}) error {
	return &usageError{
		error: fmt.Errorf(format, a...),
		flags: flags,
	}
}

type usageError struct {
	error
	flags flag.FlagSet
}

func (e *usageError) ReportUserError(w io.Writer) {
	fmt.Fprintf(w, "%s\n\nUsage:\n\n", e.error)
	e.flags.Usage()
}

// MustGetwd is Getwd for call sites that cannot reasonably continue
// without a working directory.
func MustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("get working directory: %s", err))
	}
	return wd
}

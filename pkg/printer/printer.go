// Copyright 2024 The gitops-promote Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package printer defines utilities to display CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ido83/gitops-promote/internal/types"
)

// Printer defines capabilities to display content in the CLI.
// The main intention, at the moment, is to abstract away printing
// output in the CLI so that we can evolve the CLI UX independently.
type Printer interface {
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Options are optional options for printer
type Options struct {
	// RecordPath is the unique path to the environment record.
	RecordPath types.UniquePath
	// RecordDisplayPath is the display path for the environment record.
	RecordDisplayPath types.DisplayPath
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// Record sets the record unique path in options.
func (opt *Options) Record(p types.UniquePath) *Options {
	opt.RecordPath = p
	return opt
}

// RecordDisplay sets the record display path in options.
func (opt *Options) RecordDisplay(p types.DisplayPath) *Options {
	opt.RecordDisplayPath = p
	return opt
}

// New returns an instance of Printer.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
	}
}

// printer implements the default Printer.
type printer struct {
	outStream io.Writer
	errStream io.Writer
}

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.  Its value of zero is
// arbitrary.  If this package defined other context keys, they would have
// different integer values.
const printerKey contextKey = 0

// OutStream returns the StdOut stream, this can be used by callers to print
// command output to stdout, do not print error/debug logs to this stream
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// ErrStream returns the StdErr stream, this can be used by callers to print
// command output to stderr, print only error/debug/info logs to this stream
func (pr *printer) ErrStream() io.Writer {
	return pr.errStream
}

// Printf is the wrapper over fmt.Printf that displays the output.
// this will print messages to stderr stream
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.errStream, format, args...)
}

// OptPrintf is the wrapper over fmt.Printf that displays the output according
// to the opt, this will print messages to stderr stream
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		fmt.Fprintf(pr.errStream, format, args...)
		return
	}
	if !opt.RecordDisplayPath.Empty() {
		format = fmt.Sprintf("Record %q: ", string(opt.RecordDisplayPath)) + format
	} else if !opt.RecordPath.Empty() {
		// try to print the relative path of the record if we can else use abs path
		relPath, err := opt.RecordPath.RelativePath()
		if err != nil {
			relPath = string(opt.RecordPath)
		}
		format = fmt.Sprintf("Record %q: ", relPath) + format
	}
	fmt.Fprintf(pr.errStream, format, args...)
}

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// FromContextOrDie returns the printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}

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

// Package errors defines the error handling used by the gitops-promote
// codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/ido83/gitops-promote/internal/types"
)

// Error is an implementation of the error interface used throughout the
// promotion workflow.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the path of the environment record involved in the operation.
	Path types.UniquePath

	// Op is the operation being performed, for ex. promote.run, record.load
	Op Op

	// Kind refers to the class of error.
	Kind Kind

	// Err refers to the wrapped error (if any).
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("record ")
		b.WriteString(string(e.Path))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// pad appends str to the string buffer if it already has content.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Kind == 0 && e.Err == nil
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Op describes the operation being performed.
type Op string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other          Kind = iota // Unclassified. Will not be printed.
	Internal                   // Internal error.
	InvalidParam               // Value is not valid.
	MissingParam               // Required value is missing or empty.
	Git                        // Errors from Git.
	RecordNotFound             // Environment record does not exist on disk.
	DirtySource                // Source record has uncommitted changes.
	BrokenChain                // Source record was never promoted into.
	MissingField               // Required field absent in the source record.
	Malformed                  // Record cannot be parsed or round-tripped.
	Publish                    // Local commit succeeded but push failed.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case Git:
		return "git error"
	case RecordNotFound:
		return "record not found"
	case DirtySource:
		return "source record has uncommitted changes"
	case BrokenChain:
		return "promotion chain is broken"
	case MissingField:
		return "required field missing"
	case Malformed:
		return "malformed record"
	case Publish:
		return "publish failed"
	}
	return "unknown kind"
}

func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = fmt.Errorf("%s", a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// IsKind reports whether any error in err's chain is an *Error carrying the
// provided kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		e, ok := err.(*Error)
		if ok && e.Kind == kind {
			return true
		}
		err = goerrors.Unwrap(err)
	}
	return false
}

// As is a thin wrapper around the standard library errors.As so callers
// only need to import this package.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// Is is a thin wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

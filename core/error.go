/***
Copyright 2014 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package core holds the error taxonomy shared by the controller packages.
// Errors carry the file and line where they were formed and a kind that
// callers use to decide between aborting, logging and degrading to flood.
package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an error
type Kind int

const (
	// KindUnknown is the kind of errors formed with plain Errorf
	KindUnknown Kind = iota
	// ConfigurationError is an unknown logical table/command/group name or
	// an invalid static setting. It indicates a defect, not a runtime condition.
	ConfigurationError
	// TransportError is a switch that is unreachable or rejected a send
	TransportError
	// PipelineProgramError is a failed flow or group installation
	PipelineProgramError
)

func (k Kind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case TransportError:
		return "TransportError"
	case PipelineProgramError:
		return "PipelineProgramError"
	}
	return "Error"
}

// ErrNotFound is returned by lookups that found nothing. It is an expected
// outcome and is never wrapped with file/line information.
var ErrNotFound = errors.New("not found")

// Error is an error with the location where it was formed
type Error struct {
	kind  Kind
	desc  string
	file  string
	line  int
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s %d]", e.desc, e.file, e.line)
}

// Kind returns the classification of the error
func (e *Error) Kind() Kind {
	return e.kind
}

// Unwrap returns the underlying error, if any
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, cause error, f string, args ...interface{}) *Error {
	e := &Error{kind: kind, cause: cause}
	e.desc = fmt.Sprintf(f, args...)
	if cause != nil {
		e.desc = e.desc + ": " + cause.Error()
	}
	_, e.file, e.line, _ = runtime.Caller(2)
	e.file = e.file[strings.LastIndex(e.file, "/")+1:]
	return e
}

// Errorf forms an error of unknown kind
func Errorf(f string, args ...interface{}) *Error {
	return newError(KindUnknown, nil, f, args...)
}

// KindErrorf forms an error of the given kind
func KindErrorf(kind Kind, f string, args ...interface{}) *Error {
	return newError(kind, nil, f, args...)
}

// Wrap forms an error of the given kind around cause. The kind of cause is
// not inherited.
func Wrap(kind Kind, cause error, f string, args ...interface{}) *Error {
	return newError(kind, cause, f, args...)
}

// IsKind reports whether any error in err's chain is a core.Error of kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.kind == kind {
				return true
			}
			err = e.cause
			continue
		}
		return false
	}
	return false
}

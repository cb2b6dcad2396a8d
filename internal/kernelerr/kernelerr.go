// Package kernelerr defines the typed error kinds shared across every
// kernel subsystem, so CLI handlers can map them to exit codes and
// owning sources without string sniffing.
package kernelerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the kernel surfaces.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindAmbiguous  Kind = "ambiguous"
	KindValidation Kind = "validation_error"
	KindConflict   Kind = "conflict"
	KindMigration  Kind = "migration_error"
	KindStorage    Kind = "storage_error"
	KindTimeout    Kind = "timeout_error"
	KindWorker     Kind = "worker_error"
)

// Error is the concrete error type for every domain failure. Source
// names the owning subsystem (e.g. "bridge", "memory", "registry").
// The CLI maps Kind to an exit code; it emits no event for a failed
// command.
type Error struct {
	Kind       Kind
	Source     string
	Message    string
	Candidates []string // populated for KindAmbiguous
	Err        error    // wrapped cause, if any
}

func (e *Error) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("%s: %s (candidates: %v)", e.Source, e.Message, e.Candidates)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(source, message string) *Error {
	return &Error{Kind: KindNotFound, Source: source, Message: message}
}

func Ambiguous(source, message string, candidates []string) *Error {
	return &Error{Kind: KindAmbiguous, Source: source, Message: message, Candidates: candidates}
}

func Validation(source, message string) *Error {
	return &Error{Kind: KindValidation, Source: source, Message: message}
}

func Conflict(source, message string) *Error {
	return &Error{Kind: KindConflict, Source: source, Message: message}
}

func Migration(source, message string, err error) *Error {
	return &Error{Kind: KindMigration, Source: source, Message: message, Err: err}
}

func Storage(source, message string, err error) *Error {
	return &Error{Kind: KindStorage, Source: source, Message: message, Err: err}
}

func Timeout(source, message string) *Error {
	return &Error{Kind: KindTimeout, Source: source, Message: message}
}

func Worker(source, message string, err error) *Error {
	return &Error{Kind: KindWorker, Source: source, Message: message, Err: err}
}

// ExitCode maps an error kind to the CLI exit code contract: 0 success
// (never produced here), 1 domain error, 124 timeout, 2 for anything
// else unexpected.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var kerr *Error
	if errors.As(err, &kerr) {
		if kerr.Kind == KindTimeout {
			return 124
		}
		return 1
	}
	return 2
}

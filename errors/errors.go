// Package errors provides typed error handling for nsctl-go.
//
// It defines the error taxonomy the namespace orchestrator raises so
// callers can classify failures with errors.Is()/errors.As() instead of
// string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrUnknownNamespace indicates a requested namespace kind is not in the registry.
	ErrUnknownNamespace ErrorKind = iota
	// ErrUnavailableNamespace indicates a namespace kind is known but unusable on this kernel.
	ErrUnavailableNamespace
	// ErrSetting indicates a configuration contradiction the resolver refused to silently fix.
	ErrSetting
	// ErrRequireSuperuser indicates the resolved plan needs privileges the caller lacks.
	ErrRequireSuperuser
	// ErrSyscallFailed indicates a kernel call returned a nonzero error.
	ErrSyscallFailed
	// ErrIo indicates a procfs read/write or bind-directory access failed.
	ErrIo
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownNamespace:
		return "unknown namespace"
	case ErrUnavailableNamespace:
		return "unavailable namespace"
	case ErrSetting:
		return "invalid configuration"
	case ErrRequireSuperuser:
		return "requires superuser"
	case ErrSyscallFailed:
		return "syscall failed"
	case ErrIo:
		return "i/o error"
	default:
		return "unknown error"
	}
}

// NsError represents an error raised by the namespace orchestrator.
type NsError struct {
	// Op is the operation that failed (e.g. "resolve", "spawn", "pin").
	Op string
	// Kind is the error classification.
	Kind ErrorKind
	// Names carries the namespace kind names involved, when applicable.
	Names []string
	// Detail provides additional human-readable context.
	Detail string
	// Errno is the raw syscall errno, set only for ErrSyscallFailed.
	Errno int
	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message.
func (e *NsError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if len(e.Names) > 0 {
		msg += fmt.Sprintf(" %v", e.Names)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *NsError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *NsError with the same Kind.
func (e *NsError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*NsError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// UnknownNamespace builds an ErrUnknownNamespace error for the given kind names.
func UnknownNamespace(op string, names ...string) *NsError {
	return &NsError{Op: op, Kind: ErrUnknownNamespace, Names: names}
}

// UnavailableNamespace builds an ErrUnavailableNamespace error for the given kind names.
func UnavailableNamespace(op string, names ...string) *NsError {
	return &NsError{Op: op, Kind: ErrUnavailableNamespace, Names: names}
}

// SettingError builds an ErrSetting error with the given message.
func SettingError(op, msg string) *NsError {
	return &NsError{Op: op, Kind: ErrSetting, Detail: msg}
}

// RequireSuperuser builds an ErrRequireSuperuser error.
func RequireSuperuser(op string) *NsError {
	return &NsError{Op: op, Kind: ErrRequireSuperuser}
}

// SyscallFailed builds an ErrSyscallFailed error carrying the syscall name and errno.
func SyscallFailed(op, name string, errno int, err error) *NsError {
	return &NsError{Op: op, Kind: ErrSyscallFailed, Detail: name, Errno: errno, Err: err}
}

// IoError wraps an I/O failure (procfs access, bind directory access, etc).
func IoError(op string, err error) *NsError {
	return &NsError{Op: op, Kind: ErrIo, Err: err}
}

// Wrap wraps an error with the given kind and operation.
func Wrap(err error, kind ErrorKind, op string) *NsError {
	return &NsError{Op: op, Err: err, Kind: kind}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *NsError {
	return &NsError{Op: op, Err: err, Kind: kind, Detail: detail}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var nerr *NsError
	if errors.As(err, &nerr) {
		return nerr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is an *NsError.
func GetKind(err error) (ErrorKind, bool) {
	var nerr *NsError
	if errors.As(err, &nerr) {
		return nerr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

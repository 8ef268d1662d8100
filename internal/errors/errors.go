// Package errors provides custom error types for depfix operations.
//
// This package defines domain-specific error types that provide rich context
// for debugging and user-friendly error messages. All error types that wrap
// underlying errors implement the Unwrap method for use with errors.Is and
// errors.As from the standard library.
//
// Error types include:
//   - TreeError: Environment tree enumeration or normalization failures
//   - IndexError: Package index operation failures
//   - ExecError: Package manager subprocess failures with phase information
//   - LockError: Lock file read/write/restore failures
//   - NotFoundError: Resource not found errors
//   - VersionError: Version constraint resolution failures
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// TreeError represents an error while enumerating or normalizing the
// installed environment tree.
type TreeError struct {
	Element string // Offending tree element, if known
	Message string // Error description
	Err     error  // Underlying error
}

// Error returns a human-readable error message for the tree failure.
func (e *TreeError) Error() string {
	if e.Element != "" {
		if e.Err != nil {
			return fmt.Sprintf("tree error at element %q: %s: %v", e.Element, e.Message, e.Err)
		}
		return fmt.Sprintf("tree error at element %q: %s", e.Element, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("tree error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("tree error: %s", e.Message)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *TreeError) Unwrap() error {
	return e.Err
}

// IndexError represents an error with a package index operation.
// It includes the package and the operation that failed.
type IndexError struct {
	Package string // Package name
	Op      string // Operation: "fetch", "versions", "requires", "decode"
	Err     error  // Underlying error
}

// Error returns a human-readable error message describing the index failure.
func (e *IndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index error: %s failed for %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("index error: %s failed for %s", e.Op, e.Package)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *IndexError) Unwrap() error {
	return e.Err
}

// ExecError represents a package manager subprocess failure.
// It includes the affected package and the phase where the error occurred.
type ExecError struct {
	Package string // Package name
	Phase   string // Phase: "uninstall", "install", "list", "freeze", "check"
	Err     error  // Underlying error
}

// Error returns a human-readable error message describing the subprocess failure.
func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exec error for %s during %s: %v", e.Package, e.Phase, e.Err)
	}
	return fmt.Sprintf("exec error for %s during %s", e.Package, e.Phase)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// LockError represents a failure while reading, writing, or restoring a
// lock document.
type LockError struct {
	Path string // Lock file path or store URL
	Op   string // Operation: "read", "write", "parse", "fetch", "store"
	Err  error  // Underlying error
}

// Error returns a human-readable error message describing the lock failure.
func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock error: %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("lock error: %s failed for %s", e.Op, e.Path)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a not found error.
// It is used when a requested resource (package, file, lockstore, etc.)
// cannot be found.
type NotFoundError struct {
	What string // What wasn't found (e.g., "package", "file", "lockstore")
	Name string // Name of the thing
}

// Error returns a human-readable error message describing what was not found.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Name)
}

// VersionError represents a version resolution error.
// It is used when a combined constraint cannot be satisfied by any
// available version.
type VersionError struct {
	Package    string   // Package name
	Constraint string   // Combined constraint that couldn't be satisfied
	Available  []string // Available versions
	Message    string   // Additional context message
}

// Error returns a human-readable error message describing the resolution failure.
func (e *VersionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("version error for %s: ", e.Package))

	if e.Message != "" {
		sb.WriteString(e.Message)
	} else {
		sb.WriteString(fmt.Sprintf("constraint %q cannot be satisfied", e.Constraint))
	}

	if len(e.Available) > 0 {
		sb.WriteString(fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", ")))
	}

	return sb.String()
}

// NewTreeError creates a new TreeError with the given parameters.
// Use an empty element string if the location is unknown.
func NewTreeError(element, msg string, err error) *TreeError {
	return &TreeError{
		Element: element,
		Message: msg,
		Err:     err,
	}
}

// NewIndexError creates a new IndexError with the given parameters.
// Common operations are: "fetch", "versions", "requires", "decode".
func NewIndexError(pkg, op string, err error) *IndexError {
	return &IndexError{
		Package: pkg,
		Op:      op,
		Err:     err,
	}
}

// NewExecError creates a new ExecError with the given parameters.
// Common phases are: "uninstall", "install", "list", "freeze", "check".
func NewExecError(pkg, phase string, err error) *ExecError {
	return &ExecError{
		Package: pkg,
		Phase:   phase,
		Err:     err,
	}
}

// NewLockError creates a new LockError with the given parameters.
func NewLockError(path, op string, err error) *LockError {
	return &LockError{
		Path: path,
		Op:   op,
		Err:  err,
	}
}

// NewNotFoundError creates a new NotFoundError with the given parameters.
// Common values for what: "package", "file", "lockstore", "version".
func NewNotFoundError(what, name string) *NotFoundError {
	return &NotFoundError{
		What: what,
		Name: name,
	}
}

// NewVersionError creates a new VersionError with the given parameters.
// The available slice may be nil or empty if available versions are unknown.
func NewVersionError(pkg, constraint string, available []string, msg string) *VersionError {
	return &VersionError{
		Package:    pkg,
		Constraint: constraint,
		Available:  available,
		Message:    msg,
	}
}

// Re-export standard library error functions for convenience.
// This allows callers to use errors.Is, errors.As, etc. without
// importing both this package and the standard errors package.
var (
	// Is reports whether any error in err's tree matches target.
	Is = errors.Is
	// As finds the first error in err's tree that matches target.
	As = errors.As
	// New returns an error that formats as the given text.
	New = errors.New
	// Join returns an error that wraps the given errors.
	Join = errors.Join
	// Unwrap returns the result of calling the Unwrap method on err.
	Unwrap = errors.Unwrap
)

// Wrap wraps an error with additional context message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

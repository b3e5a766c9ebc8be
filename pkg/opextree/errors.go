// SPDX-License-Identifier: MPL-2.0

package opextree

import (
	"errors"
	"fmt"
)

const (
	// ConflictItemExists means an item with the same name is already present.
	ConflictItemExists ConflictKind = "item-exists"
	// ConflictDirExists means the final segment names an existing child directory.
	ConflictDirExists ConflictKind = "directory-exists"
	// ConflictItemInPath means an intermediate segment names an existing item.
	ConflictItemInPath ConflictKind = "item-in-path"
)

var (
	// ErrConflict is the sentinel wrapped by ConflictError.
	ErrConflict = errors.New("structural conflict")
	// ErrInvalidDestination is returned for destination paths with no file name
	// or with relative segments.
	ErrInvalidDestination = errors.New("invalid destination path")
)

type (
	// ConflictKind classifies a structural conflict.
	ConflictKind string

	// ConflictError reports a name collision during tree insertion.
	// It wraps ErrConflict for errors.Is() compatibility.
	ConflictError struct {
		// Path is the destination path of the rejected item.
		Path string
		// At is the path of the existing node that collides with it.
		At   string
		Kind ConflictKind
		// Source is the source file of the rejected item, when known.
		Source string
	}

	// InvalidDestinationError is returned by Insert for malformed destinations.
	InvalidDestinationError struct {
		Path   string
		Reason string
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	var what string
	switch e.Kind {
	case ConflictItemExists:
		what = "an item with the same name already exists at " + e.At
	case ConflictDirExists:
		what = "a directory with the same name already exists at " + e.At
	case ConflictItemInPath:
		what = "path segment " + e.At + " is an item, not a directory"
	default:
		what = "collision at " + e.At
	}
	if e.Source != "" {
		return fmt.Sprintf("conflict placing %s as %s: %s", e.Source, e.Path, what)
	}
	return fmt.Sprintf("conflict placing %s: %s", e.Path, what)
}

// Unwrap returns ErrConflict.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface.
func (e *InvalidDestinationError) Error() string {
	return fmt.Sprintf("invalid destination %q: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidDestination.
func (e *InvalidDestinationError) Unwrap() error { return ErrInvalidDestination }

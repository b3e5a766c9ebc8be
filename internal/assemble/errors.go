// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"errors"
	"fmt"
)

const (
	// StageReserve is choosing the output file for a generated item.
	StageReserve Stage = "reserve-output"
	// StagePack is writing a directory archive.
	StagePack Stage = "pack"
	// StageRenderItem is rendering an item descriptor.
	StageRenderItem Stage = "render-item"
	// StageWriteItem is writing an item descriptor.
	StageWriteItem Stage = "write-item-descriptor"
	// StageRenderDir is rendering a directory descriptor.
	StageRenderDir Stage = "render-dir"
	// StageWriteDir is writing a directory descriptor.
	StageWriteDir Stage = "write-dir-descriptor"
	// StageAttach is attaching a generated item to the tree.
	StageAttach Stage = "attach"
)

// ErrPackaging is matched by every PackagingError.
var ErrPackaging = errors.New("packaging failed")

type (
	// Stage names the step of directory processing that failed.
	Stage string

	// PackagingError reports a failure while processing one directory.
	PackagingError struct {
		// Dir is the tree path of the directory ("/" for the root).
		Dir   string
		Stage Stage
		// Path is the output file involved, when there is one.
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *PackagingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("packaging %s failed at %s (%s): %v", e.Dir, e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("packaging %s failed at %s: %v", e.Dir, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PackagingError) Unwrap() error { return e.Err }

// Is reports ErrPackaging as part of the chain.
func (e *PackagingError) Is(target error) bool { return target == ErrPackaging }

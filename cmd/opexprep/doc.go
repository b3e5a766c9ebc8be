// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for opexprep.
//
// This package implements the Cobra command hierarchy: prepare builds a
// package from source directories, upload sends a prepared package to object
// storage, and the manifest and config commands inspect what the others use.
package cmd

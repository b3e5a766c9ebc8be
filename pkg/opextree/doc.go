// SPDX-License-Identifier: MPL-2.0

// Package opextree provides the in-memory model of a package being prepared for
// OPEX ingest: immutable Item values attached to directory nodes of a Tree.
//
// Directory nodes live in an index-addressed table owned by the Tree. Nodes
// refer to their children and to their parent by DirID; the parent link is
// used for navigation only (root detection and Path computation). Items and
// children keep insertion order, which is the order used when the tree is
// flattened into an upload manifest.
//
// A Tree is not safe for concurrent use.
package opextree

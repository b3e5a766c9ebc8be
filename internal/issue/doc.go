// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown guides for the
// failures an operator can fix: configuration mistakes, classifier rules that
// collide, unwritable target directories, rejected uploads.
package issue

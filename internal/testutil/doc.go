// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by opexprep tests: Must* wrappers that
// fail the test on error, source tree fixtures and a fake clock.
package testutil

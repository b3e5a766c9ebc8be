// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrHook is matched by every HookError.
var ErrHook = errors.New("ingest hook failed")

type (
	// HookEnv describes the finished upload to the hook script.
	HookEnv struct {
		Bucket    string
		Container string
		UploadDir string
	}

	// HookError reports a failed hook run.
	HookError struct {
		Script string
		// ExitCode is set when the script ran and exited non-zero.
		ExitCode int
		Err      error
	}
)

// Error implements the error interface.
func (e *HookError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingest hook %s exited with status %d", e.Script, e.ExitCode)
	}
	return fmt.Sprintf("ingest hook %s: %v", e.Script, e.Err)
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error { return e.Err }

// Is reports ErrHook as part of the chain.
func (e *HookError) Is(target error) bool { return target == ErrHook }

// Vars returns the variables exported to the hook.
func (h HookEnv) Vars() []string {
	return []string{
		"OPEX_BUCKET=" + h.Bucket,
		"OPEX_CONTAINER=" + h.Container,
		"OPEX_UPLOAD_DIR=" + h.UploadDir,
		// The full container directory, as ingest workflows expect it,
		// e.g. opex/accession-2025-05-21T1006.
		"OPEX_CONTAINER_DIR=" + h.Container + "/" + h.UploadDir,
	}
}

// RunHook runs a POSIX shell script in the embedded interpreter. The script
// inherits the process environment plus the HookEnv variables.
func RunHook(ctx context.Context, name, script string, env HookEnv, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return &HookError{Script: name, Err: fmt.Errorf("failed to parse script: %w", err)}
	}

	vars := append(os.Environ(), env.Vars()...)
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(vars...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return &HookError{Script: name, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &HookError{Script: name, ExitCode: int(exitStatus)}
		}
		return &HookError{Script: name, Err: err}
	}
	return nil
}

// RunHookFile reads a hook script from path and runs it.
func RunHookFile(ctx context.Context, path string, env HookEnv, stdout, stderr io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &HookError{Script: path, Err: err}
	}
	return RunHook(ctx, path, string(data), env, stdout, stderr)
}

// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opexprep/opexprep/internal/testutil"
)

func TestRunHook(t *testing.T) {
	t.Parallel()

	env := HookEnv{Bucket: "ingest", Container: "opex", UploadDir: "acc-2025-05-21T1006"}

	tests := []struct {
		name     string
		script   string
		wantOut  string
		wantCode int
		wantErr  bool
	}{
		{
			name:    "exports upload variables",
			script:  `echo "$OPEX_BUCKET $OPEX_CONTAINER_DIR"`,
			wantOut: "ingest opex/acc-2025-05-21T1006",
		},
		{
			name:    "multi-line script",
			script:  "dir=$OPEX_UPLOAD_DIR\necho \"start ${dir}\"",
			wantOut: "start acc-2025-05-21T1006",
		},
		{
			name:     "non-zero exit",
			script:   "exit 3",
			wantErr:  true,
			wantCode: 3,
		},
		{
			name:    "syntax error",
			script:  "if then fi (",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			err := RunHook(context.Background(), "hook.sh", tt.script, env, &stdout, &stderr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunHook() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrHook) {
					t.Errorf("RunHook() error = %v, want ErrHook", err)
				}
				var hookErr *HookError
				if errors.As(err, &hookErr) && hookErr.ExitCode != tt.wantCode {
					t.Errorf("ExitCode = %d, want %d", hookErr.ExitCode, tt.wantCode)
				}
				return
			}
			if got := strings.TrimSpace(stdout.String()); got != tt.wantOut {
				t.Errorf("stdout = %q, want %q", got, tt.wantOut)
			}
		})
	}
}

func TestRunHookFile(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, map[string]string{"hook.sh": "echo $OPEX_BUCKET\n"})

	var stdout bytes.Buffer
	err := RunHookFile(context.Background(), filepath.Join(dir, "hook.sh"), HookEnv{Bucket: "b"}, &stdout, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunHookFile() error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "b" {
		t.Errorf("stdout = %q, want %q", got, "b")
	}

	err = RunHookFile(context.Background(), filepath.Join(dir, "missing.sh"), HookEnv{}, &stdout, &stdout)
	if !errors.Is(err, ErrHook) {
		t.Errorf("RunHookFile(missing) error = %v, want ErrHook", err)
	}
}

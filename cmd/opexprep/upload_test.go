// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/testutil"
	"github.com/opexprep/opexprep/internal/transport"
)

type recordingPutter struct {
	mu     sync.Mutex
	bucket string
	keys   []string
	opts   transport.S3Options
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.Copy(io.Discard, in.Body); err != nil {
		return nil, err
	}
	p.bucket = aws.ToString(in.Bucket)
	p.keys = append(p.keys, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

// preparedTarget runs prepare into <tmp>/out and returns the target.
func preparedTarget(t *testing.T) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), "out")
	app, _, stderr := newTestApp(config.DefaultConfig())
	if err := execute(app, "prepare", "-t", target, sourceTree(t)); err != nil {
		t.Fatalf("prepare error = %v\nstderr: %s", err, stderr)
	}
	return target
}

func appWithPutter(cfg *config.Config, putter *recordingPutter) *App {
	app, _, _ := newTestApp(cfg)
	app.NewPutter = func(_ context.Context, opts transport.S3Options) (transport.ObjectPutter, error) {
		putter.opts = opts
		return putter, nil
	}
	return app
}

func TestUpload(t *testing.T) {
	t.Parallel()

	target := preparedTarget(t)
	cfg := config.DefaultConfig()
	cfg.Upload.Region = "eu-west-2"
	cfg.Upload.Endpoint = "http://localhost:9000"
	cfg.Upload.PathStyle = true

	putter := &recordingPutter{}
	app := appWithPutter(cfg, putter)

	if err := execute(app, "upload", "-t", target, "--bucket", "ingest", "--container", "opex"); err != nil {
		t.Fatalf("upload error = %v", err)
	}

	if putter.bucket != "ingest" {
		t.Errorf("bucket = %q, want ingest", putter.bucket)
	}
	if putter.opts.Region != "eu-west-2" || !putter.opts.PathStyle || putter.opts.Endpoint != "http://localhost:9000" {
		t.Errorf("S3 options = %+v", putter.opts)
	}
	if len(putter.keys) != 8 {
		t.Fatalf("uploaded %d objects, want 8: %v", len(putter.keys), putter.keys)
	}

	const prefix = "opex/out-2025-05-21T1006/"
	for i, key := range putter.keys {
		if !strings.HasPrefix(key, prefix) {
			t.Errorf("key %q lacks prefix %q", key, prefix)
		}
		isDescriptor := strings.HasSuffix(key, ".opex")
		if i < 4 && !isDescriptor {
			t.Errorf("key %d = %q, descriptors must be uploaded first", i, key)
		}
	}
	want := prefix + "out-2025-05-21T1006.opex"
	found := false
	for _, key := range putter.keys {
		if key == want {
			found = true
		}
		if strings.HasSuffix(key, "/root.opex") {
			t.Errorf("root descriptor uploaded under its local name: %s", key)
		}
	}
	if !found {
		t.Errorf("root descriptor %q not uploaded: %v", want, putter.keys)
	}
}

func TestUpload_DefaultsFromConfig(t *testing.T) {
	t.Parallel()

	target := preparedTarget(t)
	cfg := config.DefaultConfig()
	cfg.Upload.Bucket = "configured"
	cfg.Upload.Container = "opex"

	putter := &recordingPutter{}
	app := appWithPutter(cfg, putter)

	if err := execute(app, "upload", "-t", target); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	if putter.bucket != "configured" {
		t.Errorf("bucket = %q, want the configured bucket", putter.bucket)
	}
}

func TestUpload_DryRun(t *testing.T) {
	t.Parallel()

	target := preparedTarget(t)
	app, stdout, _ := newTestApp(config.DefaultConfig())
	app.NewPutter = func(context.Context, transport.S3Options) (transport.ObjectPutter, error) {
		return nil, errors.New("dry run must not connect")
	}

	if err := execute(app, "upload", "-d", "-t", target, "-b", "ingest", "--container", "opex"); err != nil {
		t.Fatalf("upload --dry-run error = %v", err)
	}
	if !strings.Contains(stdout.String(), "out-2025-05-21T1006") {
		t.Errorf("summary missing upload directory:\n%s", stdout)
	}
}

func TestUpload_IngestHook(t *testing.T) {
	t.Parallel()

	target := preparedTarget(t)
	hookDir := testutil.WriteTree(t, map[string]string{
		"ingest.sh": "echo \"ingest $OPEX_CONTAINER_DIR in $OPEX_BUCKET\"\n",
	})
	cfg := config.DefaultConfig()
	cfg.Upload.IngestHook = filepath.Join(hookDir, "ingest.sh")

	putter := &recordingPutter{}
	app, stdout, _ := newTestApp(cfg)
	app.NewPutter = func(context.Context, transport.S3Options) (transport.ObjectPutter, error) { return putter, nil }

	if err := execute(app, "upload", "-t", target, "-b", "ingest", "--container", "opex", "--ingest"); err != nil {
		t.Fatalf("upload --ingest error = %v", err)
	}
	if !strings.Contains(stdout.String(), "ingest opex/out-2025-05-21T1006 in ingest") {
		t.Errorf("hook output missing:\n%s", stdout)
	}
}

func TestUpload_Errors(t *testing.T) {
	t.Parallel()

	failingHook := config.DefaultConfig()
	failingHook.Upload.IngestHook = filepath.Join(testutil.WriteTree(t, map[string]string{"hook.sh": "exit 4\n"}), "hook.sh")

	tests := []struct {
		name      string
		cfg       *config.Config
		target    func(t *testing.T) string
		args      []string
		wantIssue issue.Id
	}{
		{
			name:      "missing bucket",
			cfg:       config.DefaultConfig(),
			target:    preparedTarget,
			args:      []string{"--container", "opex"},
			wantIssue: issue.UploadFailedId,
		},
		{
			name:      "no hook configured",
			cfg:       config.DefaultConfig(),
			target:    preparedTarget,
			args:      []string{"-b", "ingest", "--container", "opex", "--ingest"},
			wantIssue: issue.IngestHookFailedId,
		},
		{
			name:      "hook fails",
			cfg:       failingHook,
			target:    preparedTarget,
			args:      []string{"-b", "ingest", "--container", "opex", "--ingest"},
			wantIssue: issue.IngestHookFailedId,
		},
		{
			name: "malformed manifest",
			cfg:  config.DefaultConfig(),
			target: func(t *testing.T) string {
				return testutil.WriteTree(t, map[string]string{"to_upload.txt": "no-tab-here\n"})
			},
			args:      []string{"-b", "ingest", "--container", "opex"},
			wantIssue: issue.ManifestInvalidId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _, _ := newTestApp(tt.cfg)
			app.NewPutter = func(context.Context, transport.S3Options) (transport.ObjectPutter, error) {
				return &recordingPutter{}, nil
			}

			args := append([]string{"upload", "-t", tt.target(t)}, tt.args...)
			err := execute(app, args...)

			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != tt.wantIssue {
				t.Errorf("upload error = %v, want issue %d", err, tt.wantIssue)
			}
		})
	}
}

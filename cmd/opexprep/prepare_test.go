// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/internal/testutil"
)

func sourceTree(t *testing.T) string {
	t.Helper()
	return testutil.WriteTree(t, map[string]string{
		"a.txt":   "alpha",
		"b.txt":   "beta",
		"c/x.txt": "x-ray",
	})
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	src := sourceTree(t)
	target := filepath.Join(t.TempDir(), "out")
	app, stdout, stderr := newTestApp(config.DefaultConfig())

	if err := execute(app, "prepare", "-t", target, src); err != nil {
		t.Fatalf("prepare error = %v\nstderr: %s", err, stderr)
	}

	for _, name := range []string{
		"root.opex",
		"out.pax.zip",
		"out.pax.zip.opex",
		"x.txt.opex",
		"c.opex",
		manifest.FileName,
	} {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Errorf("expected %s in target: %v", name, err)
		}
	}

	entries, err := manifest.ReadFile(filepath.Join(target, manifest.FileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var dests []string
	for _, e := range entries {
		dests = append(dests, e.Destination)
	}
	want := []string{
		"/a.txt", "/b.txt", "/out.pax.zip", "/out.pax.zip.opex", "/root.opex",
		"/c/x.txt", "/c/x.txt.opex", "/c/c.opex",
	}
	if strings.Join(dests, ",") != strings.Join(want, ",") {
		t.Errorf("manifest destinations = %v, want %v", dests, want)
	}
	if entries[0].Source != filepath.Join(src, "a.txt") {
		t.Errorf("content source = %q, want the original file", entries[0].Source)
	}

	if !strings.Contains(stdout.String(), "Upload list is:") {
		t.Errorf("summary missing manifest path:\n%s", stdout)
	}
}

func TestPrepare_DryRun(t *testing.T) {
	t.Parallel()

	src := sourceTree(t)
	target := filepath.Join(t.TempDir(), "out")
	app, stdout, _ := newTestApp(config.DefaultConfig())

	if err := execute(app, "prepare", "--dry-run", "-t", target, src); err != nil {
		t.Fatalf("prepare --dry-run error = %v", err)
	}

	files := testutil.ListFiles(t, target)
	if len(files) != 1 || files[0] != manifest.FileName {
		t.Errorf("dry run wrote %v, want only %s", files, manifest.FileName)
	}

	entries, err := manifest.ReadFile(filepath.Join(target, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 8 {
		t.Errorf("dry run manifest has %d entries, want 8", len(entries))
	}
	if !strings.Contains(stdout.String(), "dry run") {
		t.Errorf("summary should mention the dry run:\n%s", stdout)
	}
}

func TestPrepare_RootName(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Package.RootName = "fromconfig"

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"config", nil, "fromconfig.pax.zip"},
		{"flag overrides config", []string{"--root-name", "accession"}, "accession.pax.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := sourceTree(t)
			target := filepath.Join(t.TempDir(), "out")
			app, _, _ := newTestApp(cfg)

			args := append([]string{"prepare", "-t", target}, tt.args...)
			if err := execute(app, append(args, src)...); err != nil {
				t.Fatalf("prepare error = %v", err)
			}
			if _, err := os.Stat(filepath.Join(target, tt.want)); err != nil {
				t.Errorf("expected archive %s: %v", tt.want, err)
			}
		})
	}
}

func TestPrepare_Rules(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Classifier.Rules = []classify.Rule{
		{Match: `^c/`, Exclude: true},
		{Match: `^(.*)\.txt$`, Destination: "/texts/${1}.txt"},
	}

	src := sourceTree(t)
	target := filepath.Join(t.TempDir(), "out")
	app, _, stderr := newTestApp(cfg)

	if err := execute(app, "prepare", "--dry-run", "-t", target, src); err != nil {
		t.Fatalf("prepare error = %v\nstderr: %s", err, stderr)
	}

	entries, err := manifest.ReadFile(filepath.Join(target, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Destination, "/c/") {
			t.Errorf("excluded file in manifest: %s", e.Destination)
		}
	}
	if entries[0].Destination != "/root.opex" || entries[1].Destination != "/texts/a.txt" {
		t.Errorf("unexpected manifest head: %+v", entries[:2])
	}
}

func TestPrepare_Errors(t *testing.T) {
	t.Parallel()

	conflicting := config.DefaultConfig()
	conflicting.Classifier.Rules = []classify.Rule{{Match: `\.txt$`, Destination: "/all.txt"}}

	tests := []struct {
		name      string
		cfg       *config.Config
		source    func(t *testing.T) string
		wantIssue issue.Id
	}{
		{
			name:      "missing source",
			cfg:       config.DefaultConfig(),
			source:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantIssue: issue.SourceNotFoundId,
		},
		{
			name:      "destination conflict",
			cfg:       conflicting,
			source:    sourceTree,
			wantIssue: issue.DestinationConflictId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _, stderr := newTestApp(tt.cfg)
			err := execute(app, "prepare", "-t", filepath.Join(t.TempDir(), "out"), tt.source(t))

			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != ExitFailure {
				t.Fatalf("prepare error = %v, want ExitError with code %d", err, ExitFailure)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != tt.wantIssue {
				t.Errorf("prepare error = %v, want issue %d", err, tt.wantIssue)
			}
			if !strings.Contains(stderr.String(), "✗") {
				t.Errorf("error not rendered to stderr: %q", stderr)
			}
		})
	}
}

func TestPrepare_ConfigError(t *testing.T) {
	t.Parallel()

	var stdout, stderr strings.Builder
	app := NewApp(Dependencies{
		Config: staticConfig{err: issue.NewErrorContext().
			WithOperation("load configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.New("bad cue")).
			BuildError()},
		Stdout: &stdout,
		Stderr: &stderr,
	})

	err := execute(app, "prepare", "-t", t.TempDir(), t.TempDir())
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitConfig {
		t.Fatalf("prepare error = %v, want ExitError with code %d", err, ExitConfig)
	}
}

func TestPrepare_MetricsFile(t *testing.T) {
	t.Parallel()

	src := sourceTree(t)
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "opexprep.prom")
	app, _, _ := newTestApp(config.DefaultConfig())

	if err := execute(app, "prepare", "-t", filepath.Join(dir, "out"), "--metrics-file", metricsPath, src); err != nil {
		t.Fatalf("prepare error = %v", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"opexprep_archives_total 1", "opexprep_directories_total 2"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/fixity"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/testutil"
	"github.com/opexprep/opexprep/pkg/cueutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Classifier.Fixity != "SHA-256" {
		t.Errorf("default fixity = %q, want SHA-256", cfg.Classifier.Fixity)
	}
	if cfg.Descriptor.SecurityDescriptor != "open" {
		t.Errorf("default security descriptor = %q, want open", cfg.Descriptor.SecurityDescriptor)
	}
	if len(cfg.Classifier.Rules) != 0 {
		t.Errorf("default rules = %v, want none", cfg.Classifier.Rules)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("default config is invalid: %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}
	t.Cleanup(testutil.MustSetenv(t, "XDG_CONFIG_HOME", "/tmp/test-xdg-config"))

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}

	SetConfigDirOverride("/override")
	t.Cleanup(Reset)
	if dir, _ := ConfigDir(); dir != "/override" {
		t.Errorf("ConfigDir() with override = %s", dir)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := writeConfig(t, `
classifier: {
	fixity: "SHA-512"
	rules: [
		{match: "\\.tmp$", exclude: true},
		{match: "^(.*)$", destination: "/content/$1", access: false},
	]
}
descriptor: security_descriptor: "closed"
package: root_name: "accession-42"
upload: {
	bucket:     "ingest"
	container:  "opex"
	endpoint:   "http://localhost:9000"
	path_style: true
}
`)

	cfg, resolved, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}

	if alg, _ := cfg.Classifier.FixityAlgorithm(); alg != fixity.SHA512 {
		t.Errorf("fixity = %q", alg)
	}
	if len(cfg.Classifier.Rules) != 2 || !cfg.Classifier.Rules[0].Exclude || cfg.Classifier.Rules[1].Destination != "/content/$1" {
		t.Errorf("rules = %+v", cfg.Classifier.Rules)
	}
	if cfg.Descriptor.SecurityDescriptor != "closed" || cfg.Package.RootName != "accession-42" {
		t.Errorf("descriptor/package = %+v %+v", cfg.Descriptor, cfg.Package)
	}
	up := cfg.Upload
	if up.Bucket != "ingest" || up.Container != "opex" || !up.PathStyle || up.Endpoint != "http://localhost:9000" {
		t.Errorf("upload = %+v", up)
	}
	if up.Region != "us-east-1" {
		t.Errorf("region default lost after merge: %q", up.Region)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `upload: bucket: "from-file"`)
	t.Cleanup(testutil.MustSetenv(t, "OPEXPREP_UPLOAD_BUCKET", "from-env"))
	t.Cleanup(testutil.MustSetenv(t, "OPEXPREP_DESCRIPTOR_SECURITY_DESCRIPTOR", "closed"))

	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upload.Bucket != "from-env" {
		t.Errorf("bucket = %q, want env override", cfg.Upload.Bucket)
	}
	if cfg.Descriptor.SecurityDescriptor != "closed" {
		t.Errorf("security descriptor = %q, want env override", cfg.Descriptor.SecurityDescriptor)
	}
}

func TestLoad_ConfigDirAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))

	cfg, resolved, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() without file error = %v", err)
	}
	if resolved != "" || cfg.Classifier.Fixity != "SHA-256" {
		t.Errorf("expected defaults, got %q %+v", resolved, cfg.Classifier)
	}

	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `ui: verbose: true`)
	cfg, resolved, err = NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if resolved != filepath.Join(dir, "config.cue") || !cfg.UI.Verbose {
		t.Errorf("config dir file not used: %q %+v", resolved, cfg.UI)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax error", `upload: {bucket: "x"`, "config.cue"},
		{"schema violation", `classifier: fixity: "CRC32"`, "classifier.fixity"},
		{"unknown field", `uplaod: bucket: "x"`, "uplaod"},
		{"bad rule expression", `classifier: rules: [{match: "("}]`, "classifier.rules[0]"},
		{"bad endpoint", `upload: endpoint: "localhost:9000"`, "upload.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Load() error = %v, want actionable config error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	good := writeConfig(t, `descriptor: description: "Deposited by the registry"`)
	cfg, err := Validate(good)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Descriptor.Description != "Deposited by the registry" || cfg.Descriptor.SecurityDescriptor != "open" {
		t.Errorf("Validate() = %+v", cfg.Descriptor)
	}

	bad := writeConfig(t, `descriptor: security_descriptor: ""`)
	if _, err := Validate(bad); !errors.Is(err, cueutil.ErrValidation) {
		t.Errorf("Validate() error = %v, want CUE validation error", err)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Classifier.Rules = []classify.Rule{
		{Match: `\.tmp$`, Exclude: true},
		{Match: `^(.*)\.jpg$`, Destination: "/img/$1.jpg", Access: true, Title: "Image \"$1\""},
	}
	cfg.Package.RootName = "coll"
	cfg.Upload.Bucket = "b"
	cfg.Upload.AccessKey = "secret-should-not-leak"

	text := GenerateCUE(cfg)
	if strings.Contains(text, "secret-should-not-leak") {
		t.Fatal("GenerateCUE() must not write credentials")
	}

	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Validate(path)
	if err != nil {
		t.Fatalf("generated config does not validate: %v\n%s", err, text)
	}
	if len(got.Classifier.Rules) != 2 || got.Classifier.Rules[1].Title != `Image "$1"` || !got.Classifier.Rules[1].Access {
		t.Errorf("rules after round trip = %+v", got.Classifier.Rules)
	}
	if got.Package.RootName != "coll" || got.Upload.Bucket != "b" {
		t.Errorf("round trip lost values: %+v %+v", got.Package, got.Upload)
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/testutil"
)

type staticConfig struct {
	cfg *config.Config
	err error
}

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	return s.cfg, "", s.err
}

// newTestApp returns an App with captured output and a fixed clock.
func newTestApp(cfg *config.Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config: staticConfig{cfg: cfg},
		Now:    testutil.NewFakeClock(time.Date(2025, 5, 21, 10, 6, 0, 0, time.UTC)).Now,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return app, &stdout, &stderr
}

func execute(app *App, args ...string) error {
	root := newRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(config.DefaultConfig())
	root := newRootCommand(app)

	for _, name := range []string{"prepare", "upload", "manifest", "config"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("root command is missing %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config").Shorthand != "c" {
		t.Error("--config should have the -c shorthand")
	}
}

func TestNewApp_VerboseFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.UI.Verbose = true
	app, _, stderr := newTestApp(cfg)

	flags := &globalFlags{}
	if _, _, err := app.loadConfig(context.Background(), flags); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if !flags.verbose {
		t.Error("ui.verbose should turn on verbose output")
	}

	app.newLogger(flags.verbose).Debug("visible")
	if !strings.Contains(stderr.String(), "visible") {
		t.Errorf("debug message not logged in verbose mode: %q", stderr.String())
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/transport"
)

type (
	// PutterFactory creates the object store client used by upload.
	PutterFactory func(ctx context.Context, opts transport.S3Options) (transport.ObjectPutter, error)

	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config    config.Provider
		NewPutter PutterFactory
		Now       func() time.Time
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		NewPutter PutterFactory
		Now       func() time.Time
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// globalFlags are the persistent flags of the root command.
	globalFlags struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewPutter == nil {
		deps.NewPutter = func(ctx context.Context, opts transport.S3Options) (transport.ObjectPutter, error) {
			client, err := transport.NewS3Client(ctx, opts)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &App{
		Config:    deps.Config,
		NewPutter: deps.NewPutter,
		Now:       deps.Now,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// loadConfig loads the configuration selected by the global flags and turns
// on verbose output when the configuration asks for it.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, string, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, "", err
	}
	if cfg.UI.Verbose {
		flags.verbose = true
	}
	return cfg, path, nil
}

// newLogger creates the run logger. Messages go to stderr so that stdout
// carries only command output.
func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Level:  level,
		Prefix: "opexprep",
	})
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand creates the opexprep command tree.
func newRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "opexprep",
		Short: "Prepare directory trees for OPEX ingest",
		Long: TitleStyle.Render("opexprep") + SubtitleStyle.Render(" - Prepare directory trees for OPEX ingest") + `

opexprep classifies the files of one or more source directories, packs
directories holding several files into PAX archives, writes an OPEX
descriptor for every directory and packaged item, and records the upload
order in to_upload.txt.

` + SubtitleStyle.Render("Examples:") + `
  opexprep prepare -c config.cue -t ./out ./source      Prepare a package
  opexprep prepare --dry-run -t ./out ./source          Show what would be generated
  opexprep manifest show ./out                          List the upload order
  opexprep upload -t ./out --bucket ingest --ingest     Upload and start ingest
  opexprep config init > config.cue                     Write a starting config`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/opexprep/config.cue or ./config.cue)")

	rootCmd.AddCommand(newPrepareCommand(app, flags))
	rootCmd.AddCommand(newUploadCommand(app, flags))
	rootCmd.AddCommand(newManifestCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

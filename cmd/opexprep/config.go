// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/opexprep/opexprep/internal/config"
)

// redacted replaces credentials in printed configuration.
const redacted = "********"

// newConfigCommand creates the `opexprep config` command tree.
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage opexprep configuration",
		Long: `Manage opexprep configuration.

Configuration is read from the --config file, else from:
  - Linux: ~/.config/opexprep/config.cue
  - macOS: ~/Library/Application Support/opexprep/config.cue
  - Windows: %APPDATA%\opexprep\config.cue
  - ./config.cue
OPEXPREP_* environment variables override file values, e.g.
OPEXPREP_UPLOAD_BUCKET for upload.bucket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return fail(cmd, app, flags, err)
			}
			if err := showConfig(app.stdout, cfg, path, format); err != nil {
				return fail(cmd, app, flags, err)
			}
			return nil
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "cue", "output format: cue, toml or yaml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fail(cmd, app, flags, errors.New("no configuration file given"))
			}
			if _, err := config.Validate(path); err != nil {
				return fail(cmd, app, flags, err)
			}
			fmt.Fprintf(app.stdout, "%s %s is valid\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	})

	var write bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print a default configuration",
		Long: `Print a default configuration as CUE.

With --write the file is created in the configuration directory instead;
an existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := config.GenerateCUE(config.DefaultConfig())
			if !write {
				fmt.Fprint(app.stdout, content)
				return nil
			}
			path, err := writeDefaultConfig(content)
			if err != nil {
				return fail(cmd, app, flags, err)
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&write, "write", "w", false, "write to the configuration directory")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path, format string) error {
	shown := *cfg
	if shown.Upload.AccessKey != "" {
		shown.Upload.AccessKey = redacted
	}
	if shown.Upload.SecretKey != "" {
		shown.Upload.SecretKey = redacted
	}

	switch strings.ToLower(format) {
	case "cue":
		fmt.Fprintln(w, SubtitleStyle.Render("// source: "+displayConfigPath(path)))
		fmt.Fprint(w, config.GenerateCUE(&shown))
	case "toml":
		data, err := toml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to encode configuration as TOML: %w", err)
		}
		_, _ = w.Write(data)
	case "yaml":
		data, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to encode configuration as YAML: %w", err)
		}
		_, _ = w.Write(data)
	default:
		return fmt.Errorf("unknown format %q (want cue, toml or yaml)", format)
	}
	return nil
}

// writeDefaultConfig creates config.cue in the configuration directory.
func writeDefaultConfig(content string) (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "opexprep"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "OPEXPREP"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the opexprep configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions resolves and loads the configuration. It returns the path
// of the file used, or "" when only defaults and environment applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema shown by 'opexprep config init'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if ok, errs := cfg.IsValid(); !ok {
		resource := path
		if resource == "" {
			resource = "environment"
		}
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resource).
			WithSuggestion("Rules use Go regular expression syntax").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for stale values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("classifier.fixity", defaults.Classifier.Fixity)
	v.SetDefault("classifier.rules_file", defaults.Classifier.RulesFile)
	v.SetDefault("classifier.rules", defaults.Classifier.Rules)
	v.SetDefault("descriptor.security_descriptor", defaults.Descriptor.SecurityDescriptor)
	v.SetDefault("descriptor.description", defaults.Descriptor.Description)
	v.SetDefault("package.root_name", defaults.Package.RootName)
	v.SetDefault("upload.bucket", defaults.Upload.Bucket)
	v.SetDefault("upload.container", defaults.Upload.Container)
	v.SetDefault("upload.region", defaults.Upload.Region)
	v.SetDefault("upload.endpoint", defaults.Upload.Endpoint)
	v.SetDefault("upload.path_style", defaults.Upload.PathStyle)
	v.SetDefault("upload.access_key", defaults.Upload.AccessKey)
	v.SetDefault("upload.secret_key", defaults.Upload.SecretKey)
	v.SetDefault("upload.ingest_hook", defaults.Upload.IngestHook)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// resolvePath picks the config file: the explicit path, then the config
// directory, then the working directory. A missing explicit file is an error;
// otherwise no file at all is fine.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Create one with 'opexprep config init > config.cue'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	name := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(cfgDir, name), name} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Fields are optional, so the document is decoded to a map rather than a
// struct and defaults stay with viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.ParseToMap(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// Validate checks a config file without applying environment overrides.
func Validate(path string) (*Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("classifier.fixity", defaults.Classifier.Fixity)
	v.SetDefault("descriptor.security_descriptor", defaults.Descriptor.SecurityDescriptor)
	v.SetDefault("upload.region", defaults.Upload.Region)

	if err := loadCUEIntoViper(v, path); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if ok, errs := cfg.IsValid(); !ok {
		return nil, errs[0]
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a CUE document accepted by the schema.
// Credentials are never written.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// opexprep configuration\n")
	sb.WriteString("// Environment variables such as OPEXPREP_UPLOAD_BUCKET override these values.\n\n")

	sb.WriteString("classifier: {\n")
	fmt.Fprintf(&sb, "\tfixity: %q\n", cfg.Classifier.Fixity)
	if cfg.Classifier.RulesFile != "" {
		fmt.Fprintf(&sb, "\trules_file: %q\n", cfg.Classifier.RulesFile)
	}
	sb.WriteString("\t// First match wins; files no rule matches are skipped.\n")
	sb.WriteString("\trules: [\n")
	for _, r := range cfg.Classifier.Rules {
		sb.WriteString("\t\t{" + cueRule(r) + "},\n")
	}
	sb.WriteString("\t]\n")
	sb.WriteString("}\n")

	sb.WriteString("\ndescriptor: {\n")
	fmt.Fprintf(&sb, "\tsecurity_descriptor: %q\n", cfg.Descriptor.SecurityDescriptor)
	if cfg.Descriptor.Description != "" {
		fmt.Fprintf(&sb, "\tdescription: %q\n", cfg.Descriptor.Description)
	}
	sb.WriteString("}\n")

	if cfg.Package.RootName != "" {
		sb.WriteString("\npackage: {\n")
		fmt.Fprintf(&sb, "\troot_name: %q\n", cfg.Package.RootName)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nupload: {\n")
	fmt.Fprintf(&sb, "\tbucket: %q\n", cfg.Upload.Bucket)
	fmt.Fprintf(&sb, "\tcontainer: %q\n", cfg.Upload.Container)
	fmt.Fprintf(&sb, "\tregion: %q\n", cfg.Upload.Region)
	if cfg.Upload.Endpoint != "" {
		fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.Upload.Endpoint)
	}
	fmt.Fprintf(&sb, "\tpath_style: %v\n", cfg.Upload.PathStyle)
	if cfg.Upload.IngestHook != "" {
		fmt.Fprintf(&sb, "\tingest_hook: %q\n", cfg.Upload.IngestHook)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueRule(r classify.Rule) string {
	fields := []string{fmt.Sprintf("match: %q", r.Match)}
	if r.Exclude {
		fields = append(fields, "exclude: true")
	}
	if r.Destination != "" {
		fields = append(fields, fmt.Sprintf("destination: %q", r.Destination))
	}
	if r.Access {
		fields = append(fields, "access: true")
	}
	if r.Title != "" {
		fields = append(fields, fmt.Sprintf("title: %q", r.Title))
	}
	if r.Description != "" {
		fields = append(fields, fmt.Sprintf("description: %q", r.Description))
	}
	return strings.Join(fields, ", ")
}

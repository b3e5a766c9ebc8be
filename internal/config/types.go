// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/fixity"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidField is the sentinel error wrapped by FieldError.
	ErrInvalidField = errors.New("invalid config field")
)

type (
	// FieldError reports one invalid setting.
	FieldError struct {
		// Field is the dotted key, e.g. "upload.endpoint".
		Field  string
		Value  string
		Reason string
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier" toml:"classifier" yaml:"classifier"`
		Descriptor DescriptorConfig `json:"descriptor" mapstructure:"descriptor" toml:"descriptor" yaml:"descriptor"`
		Package    PackageConfig    `json:"package" mapstructure:"package" toml:"package" yaml:"package"`
		Upload     UploadConfig     `json:"upload" mapstructure:"upload" toml:"upload" yaml:"upload"`
		UI         UIConfig         `json:"ui" mapstructure:"ui" toml:"ui" yaml:"ui"`
	}

	// ClassifierConfig configures which files are packaged and where.
	ClassifierConfig struct {
		// Fixity is the checksum algorithm recorded in descriptors.
		Fixity string `json:"fixity" mapstructure:"fixity" toml:"fixity" yaml:"fixity"`
		// RulesFile names a CUE rule file whose rules follow Rules.
		RulesFile string          `json:"rules_file,omitempty" mapstructure:"rules_file" toml:"rules_file,omitempty" yaml:"rules_file,omitempty"`
		Rules     []classify.Rule `json:"rules" mapstructure:"rules" toml:"rules" yaml:"rules"`
	}

	// DescriptorConfig configures the generated OPEX descriptors.
	DescriptorConfig struct {
		SecurityDescriptor string `json:"security_descriptor" mapstructure:"security_descriptor" toml:"security_descriptor" yaml:"security_descriptor"`
		// Description is used for items without one.
		Description string `json:"description,omitempty" mapstructure:"description" toml:"description,omitempty" yaml:"description,omitempty"`
	}

	// PackageConfig configures the package layout.
	PackageConfig struct {
		// RootName names the root archive. Empty uses the target directory name.
		RootName string `json:"root_name,omitempty" mapstructure:"root_name" toml:"root_name,omitempty" yaml:"root_name,omitempty"`
	}

	// UploadConfig configures the object store upload.
	UploadConfig struct {
		Bucket    string `json:"bucket" mapstructure:"bucket" toml:"bucket" yaml:"bucket"`
		Container string `json:"container" mapstructure:"container" toml:"container" yaml:"container"`
		Region    string `json:"region" mapstructure:"region" toml:"region" yaml:"region"`
		// Endpoint points at an S3-compatible store instead of AWS.
		Endpoint  string `json:"endpoint,omitempty" mapstructure:"endpoint" toml:"endpoint,omitempty" yaml:"endpoint,omitempty"`
		PathStyle bool   `json:"path_style" mapstructure:"path_style" toml:"path_style" yaml:"path_style"`
		// AccessKey and SecretKey are optional; the AWS default chain is used
		// when they are empty.
		AccessKey  string `json:"access_key,omitempty" mapstructure:"access_key" toml:"access_key,omitempty" yaml:"access_key,omitempty"`
		SecretKey  string `json:"secret_key,omitempty" mapstructure:"secret_key" toml:"secret_key,omitempty" yaml:"secret_key,omitempty"`
		IngestHook string `json:"ingest_hook,omitempty" mapstructure:"ingest_hook" toml:"ingest_hook,omitempty" yaml:"ingest_hook,omitempty"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose" yaml:"verbose"`
	}
)

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidField for errors.Is() compatibility.
func (e *FieldError) Unwrap() error { return ErrInvalidField }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid checks the settings CUE cannot: the fixity name, the rule
// expressions and the endpoint URL.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	errs = append(errs, c.Classifier.validate()...)
	errs = append(errs, c.Descriptor.validate()...)
	errs = append(errs, c.Upload.validate()...)
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// FixityAlgorithm returns the parsed fixity setting.
func (c ClassifierConfig) FixityAlgorithm() (fixity.Algorithm, error) {
	return fixity.Parse(c.Fixity)
}

// EffectiveRules returns the inline rules followed by those of RulesFile.
// Without any rule every file is accepted at its source-relative path.
func (c ClassifierConfig) EffectiveRules() ([]classify.Rule, error) {
	rules := append([]classify.Rule(nil), c.Rules...)
	if c.RulesFile != "" {
		fromFile, err := classify.LoadRules(c.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fromFile...)
	}
	if len(rules) == 0 {
		rules = []classify.Rule{{Match: ".", Destination: classify.DefaultDestination}}
	}
	return rules, nil
}

func (c ClassifierConfig) validate() []error {
	var errs []error
	if _, err := c.FixityAlgorithm(); err != nil {
		errs = append(errs, &FieldError{Field: "classifier.fixity", Value: c.Fixity, Reason: err.Error()})
	}
	if _, err := classify.New(c.Rules, classify.Options{}); err != nil {
		var re *classify.RuleError
		if errors.As(err, &re) {
			errs = append(errs, &FieldError{
				Field:  fmt.Sprintf("classifier.rules[%d]", re.Index),
				Value:  re.Rule.Match,
				Reason: re.Err.Error(),
			})
		} else {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c DescriptorConfig) validate() []error {
	if strings.TrimSpace(c.SecurityDescriptor) == "" {
		return []error{&FieldError{Field: "descriptor.security_descriptor", Value: c.SecurityDescriptor, Reason: "must not be empty"}}
	}
	return nil
}

func (c UploadConfig) validate() []error {
	if c.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{&FieldError{Field: "upload.endpoint", Value: c.Endpoint, Reason: "must be an http(s) URL"}}
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Fixity: string(fixity.SHA256),
			Rules:  []classify.Rule{},
		},
		Descriptor: DescriptorConfig{
			SecurityDescriptor: "open",
		},
		Upload: UploadConfig{
			Region: "us-east-1",
		},
	}
}

// SPDX-License-Identifier: MPL-2.0

package classify

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/opexprep/opexprep/pkg/cueutil"
)

//go:embed rules_schema.cue
var rulesSchema []byte

// RuleSet is the content of a rule file.
type RuleSet struct {
	Rules []Rule `json:"rules"`
}

// LoadRules reads a CUE rule file and validates it against the rule schema.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return ParseRules(data, path)
}

// ParseRules validates CUE rule data. filename is used in error messages.
func ParseRules(data []byte, filename string) ([]Rule, error) {
	result, err := cueutil.ParseAndDecode[RuleSet](rulesSchema, data, "#RuleSet", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value.Rules, nil
}

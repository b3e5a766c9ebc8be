// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Rule: {
	match:        string
	destination?: string
	exclude:      bool | *false
}

#RuleSet: {
	name:  string
	rules: [...#Rule]
}

#Partial: {
	name?:  string
	rules?: [...#Rule]
}
`

type (
	testRule struct {
		Match       string `json:"match"`
		Destination string `json:"destination,omitempty"`
		Exclude     bool   `json:"exclude"`
	}

	testRuleSet struct {
		Name  string     `json:"name"`
		Rules []testRule `json:"rules"`
	}
)

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid document decodes", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "photos"
rules: [
	{match: "^raw/", exclude: true},
	{match: "^(.*)\\.jpg$", destination: "/images/$1.jpg"},
]
`)
		result, err := ParseAndDecode[testRuleSet]([]byte(testSchema), data, "#RuleSet")
		if err != nil {
			t.Fatalf("ParseAndDecode() error = %v", err)
		}
		if result.Value.Name != "photos" || len(result.Value.Rules) != 2 {
			t.Fatalf("unexpected value %+v", result.Value)
		}
		if !result.Value.Rules[0].Exclude || result.Value.Rules[1].Exclude {
			t.Errorf("exclude defaults not applied: %+v", result.Value.Rules)
		}
		if result.Value.Rules[1].Destination != "/images/$1.jpg" {
			t.Errorf("destination = %q", result.Value.Rules[1].Destination)
		}
	})

	t.Run("type mismatch names the path", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "photos"
rules: [{match: 3}]
`)
		_, err := ParseAndDecode[testRuleSet]([]byte(testSchema), data, "#RuleSet", WithFilename("rules.cue"))
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(err.Error(), "rules.cue") || !strings.Contains(err.Error(), "rules[0].match") {
			t.Errorf("error should name file and path, got: %v", err)
		}
	})

	t.Run("missing field fails when concrete", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testRuleSet]([]byte(testSchema), []byte(`rules: []`), "#RuleSet")
		if err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("optional field may be absent", func(t *testing.T) {
		t.Parallel()

		m, err := ParseToMap([]byte(testSchema), []byte(`rules: []`), "#Partial", WithConcrete(false))
		if err != nil {
			t.Fatalf("ParseToMap() error = %v", err)
		}
		if _, ok := m["name"]; ok {
			t.Errorf("name should be absent, got %v", m)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testRuleSet]([]byte(testSchema), []byte(`name: "x`), "#RuleSet", WithFilename("bad.cue"))
		if err == nil || !strings.Contains(err.Error(), "bad.cue") {
			t.Errorf("expected syntax error naming bad.cue, got %v", err)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testRuleSet]([]byte(testSchema), []byte(`name: "photos"`), "#RuleSet", WithMaxFileSize(4))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("unknown definition", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testRuleSet]([]byte(testSchema), []byte(`name: "x"`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("expected missing definition error, got %v", err)
		}
	})
}

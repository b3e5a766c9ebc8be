// SPDX-License-Identifier: MPL-2.0

package classify

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDestination mirrors the source layout.
const DefaultDestination = "/${path}"

// ErrInvalidRule is matched by every RuleError.
var ErrInvalidRule = errors.New("invalid classifier rule")

type (
	// Rule decides the fate of the files whose relative path matches Match.
	Rule struct {
		Match       string `json:"match" mapstructure:"match" toml:"match" yaml:"match"`
		Exclude     bool   `json:"exclude,omitempty" mapstructure:"exclude" toml:"exclude,omitempty" yaml:"exclude,omitempty"`
		Destination string `json:"destination,omitempty" mapstructure:"destination" toml:"destination,omitempty" yaml:"destination,omitempty"`
		Access      bool   `json:"access,omitempty" mapstructure:"access" toml:"access,omitempty" yaml:"access,omitempty"`
		Title       string `json:"title,omitempty" mapstructure:"title" toml:"title,omitempty" yaml:"title,omitempty"`
		Description string `json:"description,omitempty" mapstructure:"description" toml:"description,omitempty" yaml:"description,omitempty"`
	}

	// RuleError reports a rule that cannot be compiled.
	RuleError struct {
		Index int
		Rule  Rule
		Err   error
	}

	compiledRule struct {
		Rule
		re *regexp.Regexp
	}

	// match is the outcome of applying the rules to one path.
	match struct {
		rule        *compiledRule
		destination string
		title       string
		description string
	}
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d (%q): %v", e.Index, e.Rule.Match, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error { return e.Err }

// Is reports ErrInvalidRule as part of the chain.
func (e *RuleError) Is(target error) bool { return target == ErrInvalidRule }

func compile(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return nil, &RuleError{Index: i, Rule: r, Err: err}
		}
		if r.Destination == "" {
			r.Destination = DefaultDestination
		}
		if !strings.HasPrefix(r.Destination, "/") {
			return nil, &RuleError{Index: i, Rule: r, Err: fmt.Errorf("destination %q must start with /", r.Destination)}
		}
		for _, tmpl := range []string{r.Destination, r.Title, r.Description} {
			if err := checkGroups(tmpl, re.NumSubexp()); err != nil {
				return nil, &RuleError{Index: i, Rule: r, Err: err}
			}
		}
		out = append(out, compiledRule{Rule: r, re: re})
	}
	return out, nil
}

// checkGroups rejects numbered references beyond the groups of the expression.
func checkGroups(tmpl string, groups int) error {
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '$' || i+1 == len(tmpl) {
			continue
		}
		rest := tmpl[i+1:]
		if rest[0] == '$' {
			i++
			continue
		}
		var ref string
		if rest[0] == '{' {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return fmt.Errorf("unterminated ${ in %q", tmpl)
			}
			ref = rest[1:end]
		} else {
			end := 0
			for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
				end++
			}
			ref = rest[:end]
		}
		n, err := strconv.Atoi(ref)
		if err != nil {
			continue
		}
		if n > groups {
			return fmt.Errorf("template %q refers to group $%d but the expression has %d", tmpl, n, groups)
		}
	}
	return nil
}

// apply returns the first rule matching rel, expanded for that path.
func apply(rules []compiledRule, rel string) (match, bool) {
	for i := range rules {
		r := &rules[i]
		sub := r.re.FindStringSubmatchIndex(rel)
		if sub == nil {
			continue
		}
		if r.Exclude {
			return match{rule: r}, true
		}
		vars := pathVars(rel)
		dest := expand(r.re, r.Destination, rel, sub, vars)
		if strings.HasSuffix(dest, "/") {
			dest += path.Base(rel)
		}
		return match{
			rule:        r,
			destination: path.Clean(dest),
			title:       expand(r.re, r.Title, rel, sub, vars),
			description: expand(r.re, r.Description, rel, sub, vars),
		}, true
	}
	return match{}, false
}

func pathVars(rel string) *strings.Replacer {
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	esc := func(s string) string { return strings.ReplaceAll(s, "$", "$$") }
	return strings.NewReplacer(
		"$$", "$$",
		"${name}", esc(path.Base(rel)),
		"${dir}", esc(dir),
		"${path}", esc(rel),
	)
}

// expand substitutes the path variables and then the match groups.
func expand(re *regexp.Regexp, tmpl, src string, sub []int, vars *strings.Replacer) string {
	if tmpl == "" {
		return ""
	}
	return string(re.ExpandString(nil, vars.Replace(tmpl), src, sub))
}

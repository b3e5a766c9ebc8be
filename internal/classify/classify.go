// SPDX-License-Identifier: MPL-2.0

// Package classify decides, by ordered regular expression rules, which source
// files go into a package and where.
//
// Each file's path relative to the source root it was found under is matched
// against the rules in order. The first matching rule wins: an exclude rule
// rejects the file, any other rule accepts it at its expanded destination.
// Files no rule matches are rejected.
package classify

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/opexprep/opexprep/internal/build"
	"github.com/opexprep/opexprep/internal/fixity"
	"github.com/opexprep/opexprep/pkg/opextree"
)

// DefaultMediaType is used for extensions without a registered type.
const DefaultMediaType = "application/octet-stream"

type (
	// Options configures a Classifier.
	Options struct {
		// Roots are the source directories; relative paths are computed
		// against the deepest root containing a file.
		Roots []string
		// Fixity selects the checksum recorded for accepted files.
		Fixity fixity.Algorithm
		Logger *log.Logger
	}

	// Classifier implements build.Classifier with rules.
	Classifier struct {
		rules  []compiledRule
		roots  []string
		fixity fixity.Algorithm
		logger *log.Logger
	}
)

var _ build.Classifier = (*Classifier)(nil)

// New compiles rules. A rule with an invalid expression or template yields a
// *RuleError.
func New(rules []Rule, opts Options) (*Classifier, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source root %s: %w", r, err)
		}
		roots = append(roots, abs)
	}
	// Deepest first, so nested roots take precedence.
	slices.SortStableFunc(roots, func(a, b string) int { return len(b) - len(a) })

	alg := opts.Fixity
	if alg == "" {
		alg = fixity.SHA256
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Classifier{rules: compiled, roots: roots, fixity: alg, logger: logger}, nil
}

// Rel returns the slash path of path relative to its source root, or its base
// name when no root contains it.
func (c *Classifier) Rel(path string) string {
	for _, root := range c.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.ToSlash(rel)
	}
	return filepath.Base(path)
}

// Classify applies the rules to path and gathers the size, media type and
// checksum of accepted files.
func (c *Classifier) Classify(ctx context.Context, path string) (build.Classification, bool, error) {
	if err := ctx.Err(); err != nil {
		return build.Classification{}, false, err
	}

	rel := c.Rel(path)
	m, ok := apply(c.rules, rel)
	if !ok {
		c.logger.Debug("no rule matches", "path", rel)
		return build.Classification{}, false, nil
	}
	if m.rule.Exclude {
		c.logger.Debug("excluded by rule", "path", rel, "rule", m.rule.Match)
		return build.Classification{}, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return build.Classification{}, false, fmt.Errorf("failed to stat file: %w", err)
	}
	sum, err := fixity.Sum(path, c.fixity)
	if err != nil {
		return build.Classification{}, false, err
	}

	return build.Classification{
		Destination: m.destination,
		Attributes: opextree.Attributes{
			Checksum:    sum,
			MediaType:   MediaType(path),
			Size:        info.Size(),
			Title:       m.title,
			Description: m.description,
			Access:      m.rule.Access,
		},
	}, true, nil
}

// MediaType guesses the media type of path from its extension, without
// parameters.
func MediaType(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if t == "" {
		return DefaultMediaType
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// layout hands out output locations for generated files. Files go flat into
// the target directory; a name already handed out earlier in the run goes to
// <target>/<dir-path>/<name> instead, which keeps both files intact.
//
// Names can be held in advance for a directory. The root is processed last
// but has no nested fallback, so its names are held before traversal starts.
type layout struct {
	target  string
	dryRun  bool
	claimed map[string]string // output path -> tree path that claimed it
	held    map[string]string // output path -> tree path it is held for
}

func newLayout(target string, dryRun bool) *layout {
	return &layout{
		target:  target,
		dryRun:  dryRun,
		claimed: make(map[string]string),
		held:    make(map[string]string),
	}
}

// hold keeps the flat name for the directory at dirPath.
func (l *layout) hold(dirPath, name string) {
	l.held[filepath.Join(l.target, name)] = dirPath
}

// reserve returns the output path for name generated in the directory at
// dirPath, creating parent directories unless in dry-run mode.
func (l *layout) reserve(dirPath, name string) (string, error) {
	flat := filepath.Join(l.target, name)
	if holder, held := l.held[flat]; held && holder == dirPath {
		delete(l.held, flat)
		l.claimed[flat] = dirPath
		return flat, nil
	}
	_, held := l.held[flat]
	if _, taken := l.claimed[flat]; !taken && !held {
		l.claimed[flat] = dirPath
		return flat, nil
	}

	rel := strings.TrimPrefix(dirPath, "/")
	nested := filepath.Join(l.target, filepath.FromSlash(rel), name)
	if owner, taken := l.claimed[nested]; taken || nested == flat {
		return "", fmt.Errorf("output file %s already generated for %q", nested, displayPath(owner))
	}
	if !l.dryRun {
		if err := os.MkdirAll(filepath.Dir(nested), 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	l.claimed[nested] = dirPath
	return nested, nil
}

// displayPath renders a tree path for messages, showing the root as "/".
func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

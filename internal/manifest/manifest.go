// SPDX-License-Identifier: MPL-2.0

// Package manifest writes and reads the upload manifest: one line per file,
// "<source>\t<destination>", listed from the root down.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opexprep/opexprep/pkg/opextree"
)

const (
	// FileName is the name of the manifest inside the target directory.
	FileName = "to_upload.txt"

	separator = "\t"
)

// ErrMalformed is matched by every LineError.
var ErrMalformed = errors.New("malformed manifest")

type (
	// Entry pairs a local file with its destination in the package.
	Entry struct {
		Source      string
		Destination string
	}

	// LineError reports an unreadable manifest line.
	LineError struct {
		Path   string
		Line   int
		Reason string
	}
)

// Error implements the error interface.
func (e *LineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Unwrap returns ErrMalformed.
func (e *LineError) Unwrap() error { return ErrMalformed }

// Entries flattens tree top-down. Items keep their insertion order, so
// content comes before the files generated for it.
func Entries(tree *opextree.Tree) []Entry {
	var entries []Entry
	for _, id := range tree.PreOrder() {
		for _, item := range tree.Items(id) {
			entries = append(entries, Entry{
				Source:      item.SourcePath,
				Destination: tree.ItemPath(id, item.Name),
			})
		}
	}
	return entries
}

// Write writes entries to w, one line each.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for i, e := range entries {
		if err := validate(e); err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
		if _, err := bw.WriteString(e.Source + separator + e.Destination + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes entries to FileName inside dir and returns the path.
func WriteFile(dir string, entries []Entry) (string, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest: %w", err)
	}
	err = Write(f, entries)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return path, nil
}

// Read parses a manifest. Blank lines are skipped.
func Read(r io.Reader) ([]Entry, error) {
	return read(r, "")
}

// ReadFile parses the manifest at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return read(f, path)
}

func read(r io.Reader, path string) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}
		source, dest, ok := strings.Cut(text, separator)
		switch {
		case !ok:
			return nil, &LineError{Path: path, Line: line, Reason: "missing tab separator"}
		case strings.Contains(dest, separator):
			return nil, &LineError{Path: path, Line: line, Reason: "more than two fields"}
		case source == "":
			return nil, &LineError{Path: path, Line: line, Reason: "empty source path"}
		case !strings.HasPrefix(dest, "/"):
			return nil, &LineError{Path: path, Line: line, Reason: fmt.Sprintf("destination %q is not absolute", dest)}
		}
		entries = append(entries, Entry{Source: source, Destination: dest})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return entries, nil
}

func validate(e Entry) error {
	for _, field := range []string{e.Source, e.Destination} {
		if strings.ContainsAny(field, "\t\n\r") {
			return fmt.Errorf("path %q contains a tab or line break", field)
		}
	}
	if e.Source == "" {
		return fmt.Errorf("destination %s has no source file", e.Destination)
	}
	return nil
}

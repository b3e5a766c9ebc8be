// SPDX-License-Identifier: MPL-2.0

// Package build turns one or more source directories into an opextree.Tree by
// asking a Classifier where each discovered file belongs.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/opexprep/opexprep/pkg/opextree"
)

// ErrClassifier is the sentinel wrapped by ClassifierError.
var ErrClassifier = errors.New("classifier failed")

type (
	// Classification is the classifier's verdict for an accepted file.
	Classification struct {
		// Destination is the slash path of the file inside the package,
		// including the file name.
		Destination string
		Attributes  opextree.Attributes
	}

	// Classifier decides whether a file is wanted. ok is false for rejected
	// files; err is reserved for failures of the classifier itself.
	Classifier interface {
		Classify(ctx context.Context, path string) (c Classification, ok bool, err error)
	}

	// ClassifierError wraps a classifier failure with the file being classified.
	ClassifierError struct {
		Path string
		Err  error
	}

	// Options configures a Builder.
	Options struct {
		// RootName names the tree root (used for the root archive name).
		RootName string
		Logger   *log.Logger
	}

	// Result is the outcome of Build.
	Result struct {
		Tree *opextree.Tree
		// Files counts regular files seen under the sources.
		Files    int
		Accepted int
		Rejected int
	}

	// Builder walks sources and inserts accepted files into a tree.
	Builder struct {
		classifier Classifier
		rootName   string
		logger     *log.Logger
	}
)

// Error implements the error interface.
func (e *ClassifierError) Error() string {
	return fmt.Sprintf("failed to classify %s: %v", e.Path, e.Err)
}

// Unwrap returns the classifier's error.
func (e *ClassifierError) Unwrap() error { return e.Err }

// Is reports ErrClassifier as part of the chain.
func (e *ClassifierError) Is(target error) bool { return target == ErrClassifier }

// New creates a Builder. A nil logger discards output.
func New(classifier Classifier, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{
		classifier: classifier,
		rootName:   opts.RootName,
		logger:     logger,
	}
}

// Build walks every source in order and returns the populated tree. The first
// conflict, classifier failure or walk error aborts the build.
func (b *Builder) Build(ctx context.Context, sources ...string) (*Result, error) {
	res := &Result{Tree: opextree.New(b.rootName)}

	for _, source := range sources {
		abs, err := filepath.Abs(source)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source %s: %w", source, err)
		}
		b.logger.Debug("walking source", "source", abs)

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				b.logger.Debug("skipping non-regular file", "path", path)
				return nil
			}
			res.Files++
			return b.add(ctx, res, path)
		})
		if err != nil {
			var conflict *opextree.ConflictError
			var classifierErr *ClassifierError
			if errors.As(err, &conflict) || errors.As(err, &classifierErr) || errors.Is(err, opextree.ErrInvalidDestination) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to walk source %s: %w", abs, err)
		}
	}

	return res, nil
}

func (b *Builder) add(ctx context.Context, res *Result, path string) error {
	c, ok, err := b.classifier.Classify(ctx, path)
	if err != nil {
		return &ClassifierError{Path: path, Err: err}
	}
	if !ok {
		res.Rejected++
		b.logger.Debug("ignoring file", "path", path)
		return nil
	}

	item := opextree.NewContentItem("", path, c.Attributes)
	if _, err := res.Tree.Insert(c.Destination, item); err != nil {
		if errors.Is(err, opextree.ErrInvalidDestination) {
			return fmt.Errorf("classifier placed %s at an invalid destination: %w", path, err)
		}
		return err
	}
	res.Accepted++
	b.logger.Debug("file will be uploaded", "path", path, "destination", c.Destination, "access", c.Attributes.Access)
	return nil
}

// SPDX-License-Identifier: MPL-2.0

// Package assemble generates the descriptors and archives of a package.
//
// Directories are processed bottom-up. A directory holding more than one item
// is complex: its members are packed into <name>.pax.zip and the archive gets
// a descriptor. A directory holding a single item gets a descriptor for that
// item. Every directory then gets its own descriptor (root.opex for the root).
// Each generated file is attached to the directory being processed, so a
// complex parent packs the artifacts of its children.
package assemble

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/opexprep/opexprep/pkg/opextree"
)

type (
	// Renderer produces descriptor documents.
	Renderer interface {
		RenderItem(item opextree.Item) (io.WriterTo, error)
		RenderDir(tree *opextree.Tree, id opextree.DirID) (io.WriterTo, error)
	}

	// Packer writes the archive of a directory to dest. It must not write
	// anything when dryRun is set.
	Packer interface {
		Pack(tree *opextree.Tree, dir opextree.DirID, dest string, dryRun bool) error
	}

	// Options configures an Assembler.
	Options struct {
		// TargetDir receives every generated file.
		TargetDir string
		// DryRun suppresses all file writes. Names and tree changes are the
		// same as in a real run.
		DryRun bool
		Logger *log.Logger
	}

	// Result counts what a run generated.
	Result struct {
		Directories     int
		Archives        int
		ItemDescriptors int
		DirDescriptors  int
	}

	// Assembler runs the bottom-up generation pass over a tree.
	Assembler struct {
		renderer Renderer
		packer   Packer
		opts     Options
		logger   *log.Logger
	}
)

// New creates an Assembler. A nil logger discards output.
func New(renderer Renderer, packer Packer, opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assembler{
		renderer: renderer,
		packer:   packer,
		opts:     opts,
		logger:   logger,
	}
}

// Generated returns the number of files the run generated.
func (r *Result) Generated() int {
	return r.Archives + r.ItemDescriptors + r.DirDescriptors
}

// Assemble visits every directory of tree once, children before parents, and
// attaches the generated items to the tree. The first failure aborts the run
// with a *PackagingError.
func (a *Assembler) Assemble(ctx context.Context, tree *opextree.Tree) (*Result, error) {
	if !a.opts.DryRun {
		if err := os.MkdirAll(a.opts.TargetDir, 0o755); err != nil {
			return nil, &PackagingError{Dir: "/", Stage: StageReserve, Path: a.opts.TargetDir, Err: err}
		}
	}

	lay := newLayout(a.opts.TargetDir, a.opts.DryRun)
	for _, name := range rootNames(tree) {
		lay.hold(tree.Path(opextree.RootID), name)
	}

	res := &Result{}
	for _, id := range tree.PostOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.process(tree, id, lay, res); err != nil {
			return nil, err
		}
		res.Directories++
	}
	return res, nil
}

// rootNames lists the files the root will generate. Item counts of the root
// only change when the root itself is processed, so they can be read up front.
func rootNames(tree *opextree.Tree) []string {
	names := []string{opextree.RootDescriptorName}
	items := tree.Items(opextree.RootID)
	switch {
	case len(items) > 1:
		archive := opextree.ArchiveName(tree.Name(opextree.RootID))
		names = append(names, archive, opextree.DescriptorName(archive))
	case len(items) == 1:
		names = append(names, opextree.DescriptorName(items[0].Name))
	}
	return names
}

func (a *Assembler) process(tree *opextree.Tree, id opextree.DirID, lay *layout, res *Result) error {
	dirPath := tree.Path(id)
	items := tree.Items(id)

	if len(items) > 1 {
		a.logger.Debug("directory has more than one file and needs a pax", "dir", displayPath(dirPath), "items", len(items))

		archiveName := opextree.ArchiveName(tree.Name(id))
		dest, err := lay.reserve(dirPath, archiveName)
		if err != nil {
			return &PackagingError{Dir: displayPath(dirPath), Stage: StageReserve, Err: err}
		}
		if err := a.packer.Pack(tree, id, dest, a.opts.DryRun); err != nil {
			return &PackagingError{Dir: displayPath(dirPath), Stage: StagePack, Path: dest, Err: err}
		}
		archive := opextree.NewGeneratedItem(archiveName, dest)
		if err := a.attach(tree, id, archive); err != nil {
			return err
		}
		res.Archives++

		if err := a.describeItem(tree, id, archive, lay); err != nil {
			return err
		}
		res.ItemDescriptors++
	} else if len(items) == 1 {
		a.logger.Debug("directory does not need a pax", "dir", displayPath(dirPath), "item", items[0].Name)

		if err := a.describeItem(tree, id, items[0], lay); err != nil {
			return err
		}
		res.ItemDescriptors++
	}

	if err := a.describeDir(tree, id, lay); err != nil {
		return err
	}
	res.DirDescriptors++
	return nil
}

func (a *Assembler) describeItem(tree *opextree.Tree, id opextree.DirID, item opextree.Item, lay *layout) error {
	dirPath := tree.Path(id)
	name := opextree.DescriptorName(item.Name)

	dest, err := lay.reserve(dirPath, name)
	if err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageReserve, Err: err}
	}
	doc, err := a.renderer.RenderItem(item)
	if err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageRenderItem, Path: dest, Err: err}
	}
	if err := a.write(dest, doc); err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageWriteItem, Path: dest, Err: err}
	}
	return a.attach(tree, id, opextree.NewGeneratedItem(name, dest))
}

func (a *Assembler) describeDir(tree *opextree.Tree, id opextree.DirID, lay *layout) error {
	dirPath := tree.Path(id)
	name := opextree.DescriptorName(tree.Name(id))
	if tree.IsRoot(id) {
		name = opextree.RootDescriptorName
	}

	dest, err := lay.reserve(dirPath, name)
	if err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageReserve, Err: err}
	}
	a.logger.Debug("making descriptor for directory", "dir", displayPath(dirPath), "descriptor", dest)

	doc, err := a.renderer.RenderDir(tree, id)
	if err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageRenderDir, Path: dest, Err: err}
	}
	if err := a.write(dest, doc); err != nil {
		return &PackagingError{Dir: displayPath(dirPath), Stage: StageWriteDir, Path: dest, Err: err}
	}
	return a.attach(tree, id, opextree.NewGeneratedItem(name, dest))
}

func (a *Assembler) attach(tree *opextree.Tree, id opextree.DirID, item opextree.Item) error {
	if err := tree.AddItem(id, item); err != nil {
		return &PackagingError{Dir: displayPath(tree.Path(id)), Stage: StageAttach, Path: item.SourcePath, Err: err}
	}
	return nil
}

// write stores doc at path unless in dry-run mode. A partially written file
// is removed.
func (a *Assembler) write(path string, doc io.WriterTo) error {
	if a.opts.DryRun {
		a.logger.Debug("dry run: skipping write", "path", path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

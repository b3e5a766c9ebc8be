// SPDX-License-Identifier: MPL-2.0

// Package descriptor renders OPEX metadata documents for items and directories
// of an opextree.Tree.
package descriptor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/opexprep/opexprep/internal/fixity"
	"github.com/opexprep/opexprep/pkg/opextree"
)

// DefaultSecurityDescriptor is used when none is configured.
const DefaultSecurityDescriptor = "open"

type (
	// Options configures a Renderer.
	Options struct {
		SecurityDescriptor string
		// Description is used for items the classifier gave no description.
		Description string
		// Fixity is used to checksum generated files that have no checksum yet.
		Fixity fixity.Algorithm
	}

	// Renderer builds OPEX documents.
	Renderer struct {
		opts Options
	}

	// Document is a rendered descriptor.
	Document struct {
		Metadata *OPEXMetadata
	}
)

// New creates a Renderer.
func New(opts Options) *Renderer {
	if opts.SecurityDescriptor == "" {
		opts.SecurityDescriptor = DefaultSecurityDescriptor
	}
	if opts.Fixity == "" {
		opts.Fixity = fixity.SHA256
	}
	return &Renderer{opts: opts}
}

// RenderItem renders the descriptor of a single item.
func (r *Renderer) RenderItem(item opextree.Item) (io.WriterTo, error) {
	meta, err := r.ItemMetadata(item)
	if err != nil {
		return nil, err
	}
	return &Document{Metadata: meta}, nil
}

// RenderDir renders the descriptor of a directory.
func (r *Renderer) RenderDir(tree *opextree.Tree, id opextree.DirID) (io.WriterTo, error) {
	return &Document{Metadata: r.DirMetadata(tree, id)}, nil
}

// ItemMetadata builds the metadata of a single item. Items without a checksum
// whose bytes already exist on disk are checksummed here; archives rendered in
// dry-run mode therefore carry no fixity.
func (r *Renderer) ItemMetadata(item opextree.Item) (*OPEXMetadata, error) {
	sum := item.Checksum
	if sum.IsZero() && !item.IsVirtual() && r.opts.Fixity != fixity.None {
		if _, err := os.Stat(item.SourcePath); err == nil {
			if sum, err = fixity.Sum(item.SourcePath, r.opts.Fixity); err != nil {
				return nil, err
			}
		}
	}

	transfer := &Transfer{SourceID: item.Name}
	if !sum.IsZero() {
		transfer.Fixities = &Fixities{Fixity: []Fixity{{Type: sum.Algorithm, Value: sum.Value}}}
	}

	title := item.Title
	if title == "" {
		title = item.Name
	}
	description := item.Description
	if description == "" {
		description = r.opts.Description
	}

	return &OPEXMetadata{
		XMLNS:    Namespace,
		Transfer: transfer,
		Properties: &Properties{
			Title:              title,
			Description:        description,
			SecurityDescriptor: r.opts.SecurityDescriptor,
		},
	}, nil
}

// DirMetadata builds the metadata of a directory: its child folders and the
// items attached to it so far.
func (r *Renderer) DirMetadata(tree *opextree.Tree, id opextree.DirID) *OPEXMetadata {
	manifest := &Manifest{}

	if children := tree.Children(id); len(children) > 0 {
		folders := &Folders{}
		for _, child := range children {
			folders.Folder = append(folders.Folder, tree.Name(child))
		}
		manifest.Folders = folders
	}

	if items := tree.Items(id); len(items) > 0 {
		files := &Files{}
		for _, item := range items {
			typ := fileTypeContent
			if item.IsDescriptor() {
				typ = fileTypeMetadata
			}
			files.File = append(files.File, File{Type: typ, Size: item.Size, Name: item.Name})
		}
		manifest.Files = files
	}

	name := tree.Name(id)
	transfer := &Transfer{SourceID: name}
	if manifest.Folders != nil || manifest.Files != nil {
		transfer.Manifest = manifest
	}

	return &OPEXMetadata{
		XMLNS:    Namespace,
		Transfer: transfer,
		Properties: &Properties{
			Title:              name,
			SecurityDescriptor: r.opts.SecurityDescriptor,
		},
	}
}

// Bytes returns the indented XML document including the XML header.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d.Metadata); err != nil {
		return nil, fmt.Errorf("failed to encode OPEX document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteTo writes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Write writes the document to a file at path.
func (d *Document) Write(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor %s: %w", path, err)
	}
	return nil
}

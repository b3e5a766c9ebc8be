// SPDX-License-Identifier: MPL-2.0

// Package pax writes Preservica PAX archives: ZIP files bundling the content
// of a directory together with everything already generated beneath it.
//
// Archive layout:
//   - content items of the packed directory go under
//     Representation_Preservation/<name> or Representation_Access/<name>
//   - generated items of the packed directory sit at the archive root
//   - items of descendant directories keep their path relative to the packed
//     directory
package pax

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/charmbracelet/log"

	"github.com/opexprep/opexprep/pkg/opextree"
)

// representationPrefix is prepended to the representation name of content items.
const representationPrefix = "Representation_"

type (
	// Member is one file placed into an archive.
	Member struct {
		// Name is the slash path inside the archive.
		Name   string
		Source string
	}

	// Packer writes archives to disk.
	Packer struct {
		logger *log.Logger
	}
)

// New creates a Packer. A nil logger discards output.
func New(logger *log.Logger) *Packer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Packer{logger: logger}
}

// Members lists what an archive of dir would contain, in tree order. Virtual
// items are skipped since they have no bytes.
func Members(tree *opextree.Tree, dir opextree.DirID) []Member {
	var members []Member
	for _, id := range tree.PreOrderFrom(dir) {
		rel := tree.RelPath(dir, id)
		for _, item := range tree.Items(id) {
			if item.IsVirtual() {
				continue
			}
			var name string
			switch {
			case id == dir && item.IsContent():
				rep := item.Representation
				if rep == "" {
					rep = opextree.RepresentationPreservation
				}
				name = path.Join(representationPrefix+string(rep), item.Name)
			default:
				name = path.Join(rel, item.Name)
			}
			members = append(members, Member{Name: name, Source: item.SourcePath})
		}
	}
	return members
}

// Pack bundles the members of dir into a ZIP archive at dest. With dryRun set
// nothing is written. A partially written archive is removed on failure.
func (p *Packer) Pack(tree *opextree.Tree, dir opextree.DirID, dest string, dryRun bool) error {
	members := Members(tree, dir)
	if dryRun {
		p.logger.Debug("dry run: skipping archive", "archive", dest, "members", len(members))
		return nil
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(f)
	for _, m := range members {
		if err = addFile(zw, m); err != nil {
			break
		}
	}
	if err == nil {
		err = zw.Close()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("failed to pack %s: %w", dest, err)
	}

	p.logger.Debug("wrote archive", "archive", dest, "members", len(members))
	return nil
}

func addFile(zw *zip.Writer, m Member) error {
	src, err := os.Open(m.Source)
	if err != nil {
		return fmt.Errorf("failed to read member %s: %w", m.Source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", m.Source, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create file header: %w", err)
	}
	header.Name = m.Name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create ZIP entry %s: %w", m.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write ZIP entry %s: %w", m.Name, err)
	}
	return nil
}

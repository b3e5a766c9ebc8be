// SPDX-License-Identifier: MPL-2.0

package opextree

import "strings"

const (
	// KindContent marks an original file being preserved.
	KindContent Kind = iota
	// KindGenerated marks a descriptor or archive produced while packaging.
	KindGenerated
)

const (
	// RepresentationPreservation is the default representation of content.
	RepresentationPreservation Representation = "Preservation"
	// RepresentationAccess marks an access copy of some preserved content.
	RepresentationAccess Representation = "Access"
)

type (
	// Kind distinguishes original content from generated artifacts.
	Kind int

	// Representation tells whether a content item is a preservation master or
	// an access copy. It is independent of Kind.
	Representation string

	// Fixity is a checksum together with the algorithm that produced it.
	// The zero value means "no checksum".
	Fixity struct {
		Algorithm string
		Value     string
	}

	// Attributes is the descriptive metadata a classifier attaches to an
	// accepted file. The core treats every field as opaque.
	Attributes struct {
		Checksum    Fixity
		MediaType   string
		Size        int64
		Title       string
		Description string
		Access      bool
	}

	// Item is one file-like entry attached to a directory node.
	//
	// Items are values: they are never modified after being added to a Tree.
	// Packaging adds new generated items instead of changing existing ones.
	Item struct {
		// Name is unique among the items and child directories of the owning node.
		Name string
		// SourcePath locates the bytes on disk. Empty for virtual entries.
		SourcePath     string
		Kind           Kind
		Representation Representation
		Checksum       Fixity
		MediaType      string
		Size           int64
		Title          string
		Description    string
	}
)

// String returns "content" or "generated".
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// IsZero reports whether no checksum is recorded.
func (f Fixity) IsZero() bool {
	return f.Algorithm == "" || f.Value == ""
}

// NewContentItem builds the item for an accepted source file.
func NewContentItem(name, sourcePath string, attrs Attributes) Item {
	rep := RepresentationPreservation
	if attrs.Access {
		rep = RepresentationAccess
	}
	return Item{
		Name:           name,
		SourcePath:     sourcePath,
		Kind:           KindContent,
		Representation: rep,
		Checksum:       attrs.Checksum,
		MediaType:      attrs.MediaType,
		Size:           attrs.Size,
		Title:          attrs.Title,
		Description:    attrs.Description,
	}
}

// NewGeneratedItem builds the item for a descriptor or archive written to sourcePath.
func NewGeneratedItem(name, sourcePath string) Item {
	return Item{
		Name:       name,
		SourcePath: sourcePath,
		Kind:       KindGenerated,
	}
}

// IsContent reports whether the item is an original file.
func (i Item) IsContent() bool {
	return i.Kind == KindContent
}

// IsDescriptor reports whether the item is an OPEX descriptor.
func (i Item) IsDescriptor() bool {
	return strings.HasSuffix(i.Name, DescriptorSuffix)
}

// IsArchive reports whether the item is a PAX archive.
func (i Item) IsArchive() bool {
	return strings.HasSuffix(i.Name, ArchiveSuffix)
}

// IsVirtual reports whether the item has no bytes on disk.
func (i Item) IsVirtual() bool {
	return i.SourcePath == ""
}

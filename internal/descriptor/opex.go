// SPDX-License-Identifier: MPL-2.0

package descriptor

import "encoding/xml"

// Namespace is the OPEX schema namespace written on every document.
const Namespace = "http://www.openpreservationexchange.org/opex/v1.2"

const (
	fileTypeContent  = "content"
	fileTypeMetadata = "metadata"
)

// The element names carry the "opex:" prefix literally; encoding/xml has no
// support for choosing namespace prefixes.
type (
	// OPEXMetadata is the document root.
	OPEXMetadata struct {
		XMLName    xml.Name    `xml:"opex:OPEXMetadata"`
		XMLNS      string      `xml:"xmlns:opex,attr"`
		Transfer   *Transfer   `xml:"opex:Transfer,omitempty"`
		Properties *Properties `xml:"opex:Properties,omitempty"`
	}

	// Transfer describes what is being transferred.
	Transfer struct {
		SourceID string    `xml:"opex:SourceID,omitempty"`
		Fixities *Fixities `xml:"opex:Fixities,omitempty"`
		Manifest *Manifest `xml:"opex:Manifest,omitempty"`
	}

	// Fixities lists checksums of the described file.
	Fixities struct {
		Fixity []Fixity `xml:"opex:Fixity"`
	}

	// Fixity is one checksum.
	Fixity struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	}

	// Manifest lists the folders and files a directory descriptor expects.
	Manifest struct {
		Folders *Folders `xml:"opex:Folders,omitempty"`
		Files   *Files   `xml:"opex:Files,omitempty"`
	}

	// Folders lists child folder names.
	Folders struct {
		Folder []string `xml:"opex:Folder"`
	}

	// Files lists file names of a folder.
	Files struct {
		File []File `xml:"opex:File"`
	}

	// File is one manifest entry.
	File struct {
		Type string `xml:"type,attr"`
		Size int64  `xml:"size,attr,omitempty"`
		Name string `xml:",chardata"`
	}

	// Properties carries descriptive metadata.
	Properties struct {
		Title              string `xml:"opex:Title,omitempty"`
		Description        string `xml:"opex:Description,omitempty"`
		SecurityDescriptor string `xml:"opex:SecurityDescriptor,omitempty"`
	}
)

// SPDX-License-Identifier: MPL-2.0

// Package transport uploads a prepared package to object storage.
//
// A package is uploaded under <container>/<upload-dir>, where the upload
// directory carries a timestamp so the same material can be sent again
// without overwriting an earlier upload. Descriptors go first, and the root
// descriptor is renamed after the upload directory, which is how the
// repository recognizes the top of an OPEX incremental ingest.
package transport

import (
	"cmp"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/pkg/opextree"
)

// uploadDirLayout formats the upload directory timestamp.
const uploadDirLayout = "2006-01-02T1504"

// Object is one file to upload.
type Object struct {
	Source string
	// Key is the object key inside the bucket.
	Key string
}

// UploadDir names the directory of one upload: <base>-YYYY-MM-DDTHHMM.
func UploadDir(base string, now time.Time) string {
	return base + "-" + now.Format(uploadDirLayout)
}

// Plan maps manifest entries to object keys. Descriptors are ordered before
// everything else, each group by destination; the root descriptor becomes
// /<uploadDir>.opex.
func Plan(entries []manifest.Entry, container, uploadDir string) []Object {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b manifest.Entry) int {
		ad := strings.HasSuffix(a.Destination, opextree.DescriptorSuffix)
		bd := strings.HasSuffix(b.Destination, opextree.DescriptorSuffix)
		switch {
		case ad && !bd:
			return -1
		case !ad && bd:
			return 1
		}
		return cmp.Compare(a.Destination, b.Destination)
	})

	objects := make([]Object, 0, len(sorted))
	for _, e := range sorted {
		objects = append(objects, Object{Source: e.Source, Key: Key(e.Destination, container, uploadDir)})
	}
	return objects
}

// Key returns the object key of a package destination.
func Key(destination, container, uploadDir string) string {
	if destination == "/"+opextree.RootDescriptorName {
		destination = "/" + opextree.DescriptorName(uploadDir)
	}
	return path.Join(container, uploadDir) + destination
}

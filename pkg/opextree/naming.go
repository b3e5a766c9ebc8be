// SPDX-License-Identifier: MPL-2.0

package opextree

const (
	// DescriptorSuffix is appended to an item or directory name to name its descriptor.
	DescriptorSuffix = ".opex"
	// ArchiveSuffix is appended to a directory name to name its PAX archive.
	ArchiveSuffix = ".pax.zip"
	// RootDescriptorName is the descriptor file name of the tree root, whatever
	// the root is called. Transport renames it at upload time.
	RootDescriptorName = "root" + DescriptorSuffix
)

// DescriptorName returns the descriptor file name for an item or directory name.
func DescriptorName(name string) string {
	return name + DescriptorSuffix
}

// ArchiveName returns the archive file name for a directory name.
func ArchiveName(dirName string) string {
	return dirName + ArchiveSuffix
}

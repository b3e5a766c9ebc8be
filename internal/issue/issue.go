// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	SourceNotFoundId Id = iota + 1
	ConfigLoadFailedId
	RulesInvalidId
	DestinationConflictId
	ClassifierFailedId
	PackagingFailedId
	ManifestInvalidId
	UploadFailedId
	IngestHookFailedId
	PermissionDeniedId
)

type (
	// Id identifies a guide.
	Id int

	// MarkdownMsg is the Markdown body of a guide.
	MarkdownMsg string

	// HttpLink is an external reference shown under "See also".
	HttpLink string

	// Issue is a Markdown guide for one kind of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the guide including its "See also" section.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		b.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			b.WriteString("- <" + string(link) + ">\n")
		}
	}
	return b.String()
}

// Render renders the guide for the terminal with the given glamour style
// ("dark", "light", "notty" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	opexLink = HttpLink("https://developers.preservica.com/documentation/open-preservation-exchange-opex")

	sourceNotFoundIssue = &Issue{
		id: SourceNotFoundId,
		mdMsg: `
# Source directory not found!

One of the source directories passed to ` + "`prepare`" + ` does not exist or is not a directory.

## Things you can try:
- Check the path for typos; relative paths are resolved from the current directory
- List what will be picked up without writing anything:
~~~
$ opexprep prepare --dry-run -t ./out ./source
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded!

The configuration file is missing, is not valid CUE, or does not match the schema.

## Things you can try:
- Validate the file and see every offending field:
~~~
$ opexprep config validate ./config.cue
~~~

- Write a commented starting point:
~~~
$ opexprep config init > config.cue
~~~

## Minimal configuration:
~~~cue
classifier: {
	fixity: "SHA-256"
	rules: [
		{match: "^(.*)$", destination: "/$1"},
	]
}
~~~`,
	}

	rulesInvalidIssue = &Issue{
		id: RulesInvalidId,
		mdMsg: `
# Classifier rules are invalid!

A rule's ` + "`match`" + ` is not a valid regular expression, or a destination template uses a group the expression does not have.

## Things you can try:
- Rules use Go (RE2) syntax; lookarounds and backreferences are not supported
- Destination templates may use ` + "`$1`..`$n`" + `, ` + "`${name}`" + ` (file name) and ` + "`${dir}`" + ` (relative directory)
- Escape a literal dollar sign as ` + "`$$`",
	}

	destinationConflictIssue = &Issue{
		id: DestinationConflictId,
		mdMsg: `
# Two files were classified to the same place!

Every destination inside the package must be unique. A file cannot share a name with a sibling file, nor with a directory that other rules created.

## Things you can try:
- Include ` + "`${dir}`" + ` in the destination template so files from different source folders stay apart
- Exclude one of the colliding files with a rule that sets ` + "`exclude: true`" + `
- Run with ` + "`--verbose`" + ` to see which rule accepted each file`,
	}

	classifierFailedIssue = &Issue{
		id: ClassifierFailedId,
		mdMsg: `
# A file could not be classified!

The classifier failed while reading a file's size or checksum.

## Things you can try:
- Check that the file is readable by the current user
- Files that change while the run is in progress can fail checksumming; retry once they are stable`,
	}

	packagingFailedIssue = &Issue{
		id: PackagingFailedId,
		mdMsg: `
# Packaging failed!

An archive or descriptor could not be written. The run stops at the first failure; the target directory may hold files from directories processed earlier.

## Things you can try:
- Check free space in the target directory
- Remove the partial output and run again; every run regenerates the whole package
~~~
$ rm -rf ./out && opexprep prepare -t ./out ./source
~~~`,
		extLinks: []HttpLink{opexLink},
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# The upload manifest is invalid!

` + "`to_upload.txt`" + ` holds one ` + "`source<TAB>destination`" + ` pair per line. The reported line does not follow that format.

## Things you can try:
- Regenerate the manifest with ` + "`opexprep prepare`" + ` instead of editing it by hand
- Inspect the manifest:
~~~
$ opexprep manifest show ./out
~~~`,
	}

	uploadFailedIssue = &Issue{
		id: UploadFailedId,
		mdMsg: `
# Upload failed!

The object store rejected a request or could not be reached.

## Things you can try:
- Check the bucket name and region in the ` + "`upload`" + ` section of the configuration
- Credentials come from the configuration or the standard AWS environment variables
- For S3-compatible stores set ` + "`upload.endpoint`" + ` and ` + "`upload.path_style: true`" + `
- Preview the object keys without sending anything:
~~~
$ opexprep upload --dry-run -t ./out
~~~`,
		extLinks: []HttpLink{opexLink},
	}

	ingestHookFailedIssue = &Issue{
		id: IngestHookFailedId,
		mdMsg: `
# The ingest hook failed!

All files were uploaded, but the hook script exited with an error, so ingest may not have been started.

## Things you can try:
- The script runs in an embedded POSIX shell with ` + "`OPEX_CONTAINER_DIR`" + ` and ` + "`OPEX_BUCKET`" + ` set
- Run the script by hand with the same variables to see its output
- Re-running ` + "`upload`" + ` creates a new timestamped container directory`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A source file could not be read or the target directory could not be written.

## Things you can try:
- Check file and directory permissions
- Choose a target directory you own with ` + "`-t`",
	}

	issues = map[Id]*Issue{
		sourceNotFoundIssue.Id():      sourceNotFoundIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		rulesInvalidIssue.Id():        rulesInvalidIssue,
		destinationConflictIssue.Id(): destinationConflictIssue,
		classifierFailedIssue.Id():    classifierFailedIssue,
		packagingFailedIssue.Id():     packagingFailedIssue,
		manifestInvalidIssue.Id():     manifestInvalidIssue,
		uploadFailedIssue.Id():        uploadFailedIssue,
		ingestHookFailedIssue.Id():    ingestHookFailedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every guide ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the guide for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

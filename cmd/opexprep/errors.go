// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/opexprep/opexprep/internal/assemble"
	"github.com/opexprep/opexprep/internal/build"
	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/internal/transport"
	"github.com/opexprep/opexprep/pkg/cueutil"
	"github.com/opexprep/opexprep/pkg/opextree"
)

// toActionable attaches an operation, suggestions and an issue guide to the
// typed errors of the pipeline. Errors that already are actionable are
// returned unchanged.
func toActionable(err error) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ctx := issue.NewErrorContext().Wrap(err)

	var (
		conflict   *opextree.ConflictError
		invalidDst *opextree.InvalidDestinationError
		classErr   *build.ClassifierError
		packErr    *assemble.PackagingError
		ruleErr    *classify.RuleError
		lineErr    *manifest.LineError
		uploadErr  *transport.UploadError
		hookErr    *transport.HookError
		pathErr    *fs.PathError
	)
	switch {
	case errors.As(err, &conflict):
		ctx.WithOperation("build package tree").
			WithResource(conflict.Path).
			WithSuggestion("Adjust the classifier rules so that every file gets a distinct destination").
			WithIssue(issue.DestinationConflictId)
	case errors.As(err, &invalidDst):
		ctx.WithOperation("build package tree").
			WithResource(invalidDst.Path).
			WithSuggestion("Destinations must be absolute slash paths ending in a file name").
			WithIssue(issue.DestinationConflictId)
	case errors.As(err, &ruleErr):
		ctx.WithOperation("compile classifier rules").
			WithResource(fmt.Sprintf("rule %d (%s)", ruleErr.Index, ruleErr.Rule.Match)).
			WithIssue(issue.RulesInvalidId)
	case errors.As(err, &classErr):
		ctx.WithOperation("classify source files").
			WithResource(classErr.Path).
			WithSuggestion("Check that the file is readable").
			WithIssue(issue.ClassifierFailedId)
	case errors.As(err, &packErr):
		ctx.WithOperation("assemble package").
			WithResource(packErr.Dir).
			WithSuggestion("Check free space and permissions of the target directory").
			WithIssue(issue.PackagingFailedId)
	case errors.As(err, &lineErr):
		ctx.WithOperation("read upload manifest").
			WithResource(fmt.Sprintf("%s:%d", lineErr.Path, lineErr.Line)).
			WithSuggestion("Run 'opexprep prepare' again to regenerate the manifest").
			WithIssue(issue.ManifestInvalidId)
	case errors.As(err, &uploadErr):
		ctx.WithOperation("upload package").
			WithResource(uploadErr.Source).
			WithSuggestion("Check the bucket name, region and credentials").
			WithIssue(issue.UploadFailedId)
	case errors.As(err, &hookErr):
		ctx.WithOperation("run ingest hook").
			WithResource(hookErr.Script).
			WithIssue(issue.IngestHookFailedId)
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, cueutil.ErrValidation):
		ctx.WithOperation("load configuration").
			WithSuggestion("Run 'opexprep config validate' to list every offending field").
			WithIssue(issue.ConfigLoadFailedId)
	case errors.Is(err, fs.ErrPermission):
		ctx.WithOperation("access files").
			WithIssue(issue.PermissionDeniedId)
		if errors.As(err, &pathErr) {
			ctx.WithResource(pathErr.Path)
		}
	default:
		return err
	}
	return ctx.BuildError()
}

// exitCode selects the process exit code for err.
func exitCode(err error) int {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue == issue.ConfigLoadFailedId {
		return ExitConfig
	}
	return ExitFailure
}

// renderError prints err to w. In verbose mode the error chain and the
// matching issue guide follow.
func renderError(w io.Writer, err error, verbose bool) {
	err = toActionable(err)

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("✗"), err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("✗"), ae.Format(verbose))
	if !verbose {
		if ae.Issue != 0 {
			fmt.Fprintln(w, VerboseStyle.Render("Run with --verbose for details and things to try."))
		}
		return
	}

	guide := ae.Guide()
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render("dark")
	if renderErr != nil {
		fmt.Fprintln(w, guide.Markdown())
		return
	}
	fmt.Fprint(w, rendered)
}

// fail renders err and returns the ExitError the RunE handler passes on.
func fail(cmd *cobra.Command, app *App, flags *globalFlags, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err = toActionable(err)
	renderError(app.stderr, err, flags.verbose)
	return &ExitError{Code: exitCode(err), Err: err}
}

// checkDir reports a missing or non-directory path.
func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "open", Path: path, Err: errors.New("not a directory")}
	}
	return nil
}

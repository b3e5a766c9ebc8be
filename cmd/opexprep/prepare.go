// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opexprep/opexprep/internal/assemble"
	"github.com/opexprep/opexprep/internal/build"
	"github.com/opexprep/opexprep/internal/classify"
	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/descriptor"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/internal/metrics"
	"github.com/opexprep/opexprep/internal/pax"
)

type (
	// prepareRequest captures the inputs of one prepare run.
	prepareRequest struct {
		Sources   []string
		TargetDir string
		DryRun    bool
		// RootName overrides package.root_name from the configuration.
		RootName string
	}

	// prepareResult is what a prepare run produced.
	prepareResult struct {
		Build    *build.Result
		Assemble *assemble.Result
		Manifest string
		Entries  []manifest.Entry
	}
)

func newPrepareCommand(app *App, flags *globalFlags) *cobra.Command {
	var (
		req         prepareRequest
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "prepare -t <target> <source>...",
		Short: "Build an OPEX package from source directories",
		Long: `Build an OPEX package from source directories.

Every regular file under the sources is classified by the configured rules.
Accepted files are arranged into a tree; directories with more than one item
are packed into <name>.pax.zip, and each directory and packaged item gets an
OPEX descriptor. The upload order is written to <target>/to_upload.txt.`,
		Example: `  # Prepare a package
  opexprep prepare -c config.cue -t ./out ./source

  # Merge two sources into one package without writing archives or descriptors
  opexprep prepare --dry-run -t ./out ./scans ./transcripts`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Sources = args
			return runPrepareCommand(cmd, app, flags, req, metricsFile)
		},
	}

	cmd.Flags().StringVarP(&req.TargetDir, "target", "t", "", "directory receiving the package (required)")
	cmd.Flags().BoolVarP(&req.DryRun, "dry-run", "d", false, "generate names and the manifest without writing archives or descriptors")
	cmd.Flags().StringVar(&req.RootName, "root-name", "", "name of the root archive (default is the target directory name)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runPrepareCommand(cmd *cobra.Command, app *App, flags *globalFlags, req prepareRequest, metricsFile string) error {
	started := app.Now()
	ctx := cmd.Context()

	cfg, cfgPath, err := app.loadConfig(ctx, flags)
	if err != nil {
		return fail(cmd, app, flags, err)
	}
	logger := app.newLogger(flags.verbose)
	logger.Debug("loaded configuration", "path", displayConfigPath(cfgPath))

	res, err := runPrepare(ctx, cfg, req, logger)

	if metricsFile != "" {
		rec := metrics.New()
		if res != nil && res.Build != nil {
			rec.ObserveBuild(res.Build)
		}
		if res != nil && res.Assemble != nil {
			rec.ObserveAssemble(res.Assemble)
		}
		rec.ObserveRun("prepare", started, app.Now(), err == nil)
		if werr := rec.WriteFile(metricsFile); werr != nil {
			logger.Warn("failed to write metrics", "error", werr)
		}
	}

	if err != nil {
		return fail(cmd, app, flags, err)
	}
	printPrepareSummary(app.stdout, req, res)
	return nil
}

// runPrepare builds the tree, assembles the package and writes the manifest.
func runPrepare(ctx context.Context, cfg *config.Config, req prepareRequest, logger *log.Logger) (*prepareResult, error) {
	for _, source := range req.Sources {
		if err := checkDir(source); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read source directory").
				WithResource(source).
				WithSuggestion("Check the path for typos").
				WithIssue(issue.SourceNotFoundId).
				Wrap(err).
				BuildError()
		}
	}

	algo, err := cfg.Classifier.FixityAlgorithm()
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Classifier.EffectiveRules()
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(rules, classify.Options{
		Roots:  req.Sources,
		Fixity: algo,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	target, err := filepath.Abs(req.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %s: %w", req.TargetDir, err)
	}
	rootName := req.RootName
	if rootName == "" {
		rootName = cfg.Package.RootName
	}
	if rootName == "" {
		rootName = filepath.Base(target)
	}

	built, err := build.New(classifier, build.Options{RootName: rootName, Logger: logger}).Build(ctx, req.Sources...)
	if err != nil {
		return nil, err
	}
	logger.Info("classified source files", "files", built.Files, "accepted", built.Accepted, "rejected", built.Rejected)

	renderer := descriptor.New(descriptor.Options{
		SecurityDescriptor: cfg.Descriptor.SecurityDescriptor,
		Description:        cfg.Descriptor.Description,
		Fixity:             algo,
	})
	assembler := assemble.New(renderer, pax.New(logger), assemble.Options{
		TargetDir: target,
		DryRun:    req.DryRun,
		Logger:    logger,
	})
	assembled, err := assembler.Assemble(ctx, built.Tree)
	if err != nil {
		return &prepareResult{Build: built}, err
	}

	// The manifest is written even in dry-run mode so the upload order can
	// be reviewed before anything else is generated.
	if req.DryRun {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return &prepareResult{Build: built, Assemble: assembled}, err
		}
	}
	entries := manifest.Entries(built.Tree)
	manifestPath, err := manifest.WriteFile(target, entries)
	if err != nil {
		return &prepareResult{Build: built, Assemble: assembled}, err
	}
	logger.Debug("wrote manifest", "path", manifestPath, "entries", len(entries))

	return &prepareResult{
		Build:    built,
		Assemble: assembled,
		Manifest: manifestPath,
		Entries:  entries,
	}, nil
}

func printPrepareSummary(w io.Writer, req prepareRequest, res *prepareResult) {
	title := "Package prepared"
	if req.DryRun {
		title = "Package planned " + WarningStyle.Render("(dry run)")
	}
	fmt.Fprintln(w, TitleStyle.Render(title))
	fmt.Fprintln(w)

	row := func(label string, value any) {
		fmt.Fprintf(w, "%s %v\n", summaryLabelStyle.Render(label), value)
	}
	row("Content items", res.Build.Accepted)
	row("Skipped", res.Build.Rejected)
	row("Directories", res.Assemble.Directories)
	row("Archives", res.Assemble.Archives)
	row("Descriptors", res.Assemble.ItemDescriptors+res.Assemble.DirDescriptors)
	row("Uploads", len(res.Entries))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Upload list is: %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(res.Manifest))
}

func displayConfigPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

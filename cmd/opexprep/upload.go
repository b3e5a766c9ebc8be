// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opexprep/opexprep/internal/config"
	"github.com/opexprep/opexprep/internal/issue"
	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/internal/metrics"
	"github.com/opexprep/opexprep/internal/transport"
)

type (
	// uploadRequest captures the inputs of one upload run. Empty Bucket and
	// Container fall back to the configuration.
	uploadRequest struct {
		TargetDir string
		Bucket    string
		Container string
		DryRun    bool
		Ingest    bool
	}

	// uploadResult is what an upload run did.
	uploadResult struct {
		Bucket    string
		Container string
		UploadDir string
		Stats     transport.Stats
		Hooked    bool
	}
)

func newUploadCommand(app *App, flags *globalFlags) *cobra.Command {
	var (
		req         uploadRequest
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "upload -t <target>",
		Short: "Upload a prepared package to object storage",
		Long: `Upload a prepared package to object storage.

Files listed in <target>/to_upload.txt are uploaded under
<container>/<target-name>-<timestamp>, descriptors first. The root descriptor
is renamed after the upload directory. With --ingest the configured
upload.ingest_hook script runs afterwards with OPEX_BUCKET, OPEX_CONTAINER,
OPEX_UPLOAD_DIR and OPEX_CONTAINER_DIR set.`,
		Example: `  # Show what would be uploaded
  opexprep upload --dry-run -t ./out --bucket ingest --container opex

  # Upload and start the ingest workflow
  opexprep upload -t ./out --ingest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUploadCommand(cmd, app, flags, req, metricsFile)
		},
	}

	cmd.Flags().StringVarP(&req.TargetDir, "target", "t", "", "directory holding the prepared package (required)")
	cmd.Flags().StringVarP(&req.Bucket, "bucket", "b", "", "bucket to upload to (default is upload.bucket)")
	cmd.Flags().StringVar(&req.Container, "container", "", "folder inside the bucket (default is upload.container)")
	cmd.Flags().BoolVarP(&req.DryRun, "dry-run", "d", false, "list the uploads without sending anything")
	cmd.Flags().BoolVarP(&req.Ingest, "ingest", "i", false, "run the ingest hook after the upload")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runUploadCommand(cmd *cobra.Command, app *App, flags *globalFlags, req uploadRequest, metricsFile string) error {
	started := app.Now()
	ctx := cmd.Context()

	cfg, _, err := app.loadConfig(ctx, flags)
	if err != nil {
		return fail(cmd, app, flags, err)
	}
	logger := app.newLogger(flags.verbose)

	res, err := runUpload(ctx, app, cfg, req, logger)

	if metricsFile != "" {
		rec := metrics.New()
		if res != nil {
			rec.ObserveUpload(res.Stats)
		}
		rec.ObserveRun("upload", started, app.Now(), err == nil)
		if werr := rec.WriteFile(metricsFile); werr != nil {
			logger.Warn("failed to write metrics", "error", werr)
		}
	}

	if err != nil {
		return fail(cmd, app, flags, err)
	}
	printUploadSummary(app.stdout, req, res)
	return nil
}

// runUpload uploads the manifest of a prepared package and runs the ingest
// hook when requested.
func runUpload(ctx context.Context, app *App, cfg *config.Config, req uploadRequest, logger *log.Logger) (*uploadResult, error) {
	bucket := firstNonEmpty(req.Bucket, cfg.Upload.Bucket)
	container := firstNonEmpty(req.Container, cfg.Upload.Container)
	if bucket == "" || container == "" {
		return nil, issue.NewErrorContext().
			WithOperation("upload package").
			WithSuggestion("Pass --bucket and --container").
			WithSuggestion("Or set upload.bucket and upload.container in the configuration").
			WithIssue(issue.UploadFailedId).
			Wrap(errors.New("bucket and container are required")).
			BuildError()
	}
	if req.Ingest && cfg.Upload.IngestHook == "" {
		return nil, issue.NewErrorContext().
			WithOperation("run ingest hook").
			WithSuggestion("Set upload.ingest_hook to the path of a shell script").
			WithIssue(issue.IngestHookFailedId).
			Wrap(errors.New("no ingest hook configured")).
			BuildError()
	}

	target, err := filepath.Abs(req.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %s: %w", req.TargetDir, err)
	}
	entries, err := manifest.ReadFile(filepath.Join(target, manifest.FileName))
	if err != nil {
		return nil, err
	}

	uploadDir := transport.UploadDir(filepath.Base(target), app.Now())
	objects := transport.Plan(entries, container, uploadDir)
	logger.Debug("planned upload", "objects", len(objects), "upload_dir", uploadDir)

	var putter transport.ObjectPutter
	if !req.DryRun {
		putter, err = app.NewPutter(ctx, transport.S3Options{
			Region:    cfg.Upload.Region,
			Endpoint:  cfg.Upload.Endpoint,
			PathStyle: cfg.Upload.PathStyle,
			AccessKey: cfg.Upload.AccessKey,
			SecretKey: cfg.Upload.SecretKey,
		})
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("connect to object storage").
				WithResource(bucket).
				WithSuggestion("Check upload.region and upload.endpoint").
				WithIssue(issue.UploadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	uploader := transport.NewUploader(putter, transport.UploaderOptions{
		Bucket: bucket,
		DryRun: req.DryRun,
		Logger: logger,
		Progress: func(obj transport.Object, size int64) {
			logger.Info("uploaded", "key", obj.Key, "bytes", size)
		},
	})
	stats, err := uploader.Upload(ctx, objects)
	res := &uploadResult{Bucket: bucket, Container: container, UploadDir: uploadDir, Stats: stats}
	if err != nil {
		return res, err
	}

	if req.Ingest {
		env := transport.HookEnv{Bucket: bucket, Container: container, UploadDir: uploadDir}
		if req.DryRun {
			logger.Info("dry run: would run ingest hook", "script", cfg.Upload.IngestHook, "container_dir", container+"/"+uploadDir)
			return res, nil
		}
		logger.Info("starting ingest hook", "script", cfg.Upload.IngestHook)
		if err := transport.RunHookFile(ctx, cfg.Upload.IngestHook, env, app.stdout, app.stderr); err != nil {
			return res, err
		}
		res.Hooked = true
	}
	return res, nil
}

func printUploadSummary(w io.Writer, req uploadRequest, res *uploadResult) {
	title := "Upload finished"
	if req.DryRun {
		title = "Upload planned " + WarningStyle.Render("(dry run)")
	}
	fmt.Fprintln(w, TitleStyle.Render(title))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d\n", summaryLabelStyle.Render("Objects"), res.Stats.Objects)
	fmt.Fprintf(w, "%s %d\n", summaryLabelStyle.Render("Bytes"), res.Stats.Bytes)
	if res.Hooked {
		fmt.Fprintf(w, "%s %s\n", summaryLabelStyle.Render("Ingest"), SuccessStyle.Render("started"))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s See %s in %s\n", SuccessStyle.Render("✓"),
		CmdStyle.Render(res.UploadDir), CmdStyle.Render(res.Bucket+"/"+res.Container))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

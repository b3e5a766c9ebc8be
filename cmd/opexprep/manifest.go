// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opexprep/opexprep/internal/manifest"
	"github.com/opexprep/opexprep/internal/transport"
)

func newManifestCommand(app *App, flags *globalFlags) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect upload manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var container string
	showCmd := &cobra.Command{
		Use:   "show <target-or-manifest>",
		Short: "List the files of a prepared package in upload order",
		Long: `List the files of a prepared package in upload order.

The argument is either a prepared target directory or a manifest file. With
--container the object keys an upload would use right now are shown as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := manifestPath(args[0])
			if err != nil {
				return fail(cmd, app, flags, err)
			}
			entries, err := manifest.ReadFile(path)
			if err != nil {
				return fail(cmd, app, flags, err)
			}
			if container != "" {
				base := filepath.Base(filepath.Dir(path))
				uploadDir := transport.UploadDir(base, app.Now())
				printPlan(app.stdout, transport.Plan(entries, container, uploadDir))
				return nil
			}
			printEntries(app.stdout, entries)
			return nil
		},
	}
	showCmd.Flags().StringVar(&container, "container", "", "show object keys for uploads into this container")
	manifestCmd.AddCommand(showCmd)

	return manifestCmd
}

// manifestPath resolves a target directory to its manifest file.
func manifestPath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return filepath.Join(abs, manifest.FileName), nil
	}
	return abs, nil
}

func printEntries(w io.Writer, entries []manifest.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", CmdStyle.Render(e.Destination), VerboseStyle.Render(e.Source))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("%d entries", len(entries))))
}

func printPlan(w io.Writer, objects []transport.Object) {
	for _, obj := range objects {
		fmt.Fprintf(w, "%s\t%s\n", CmdStyle.Render(obj.Key), VerboseStyle.Render(obj.Source))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("%d objects", len(objects))))
}

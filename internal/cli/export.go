package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtgae/alignd/internal/export"
)

// newExportCommand builds the hierarchical CSV export command.
func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [project-id]",
		Short: "Export one program board as hierarchical CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.openRuntime(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := rt.Close(); closeErr != nil {
					rt.logger.Warn("sqlite close failed", "err", closeErr)
				}
			}()

			ctx := cmd.Context()
			project, err := resolveProject(ctx, rt, args)
			if err != nil {
				return err
			}

			streams, err := rt.svc.ListStreams(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("list streams: %w", err)
			}
			deliverables, err := rt.svc.ListDeliverables(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("list deliverables: %w", err)
			}
			tracks, err := rt.svc.ListTracks(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("list tracks: %w", err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer func() {
					if closeErr := file.Close(); closeErr != nil {
						rt.logger.Warn("close export file failed", "path", outPath, "err", closeErr)
					}
				}()
				out = file
			}

			if err := export.WriteCSV(out, streams, deliverables, tracks); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			rt.logger.Info("export complete",
				"project_id", project.ID,
				"streams", len(streams),
				"deliverables", len(deliverables),
				"tracks", len(tracks),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write CSV to a file instead of stdout")
	return cmd
}

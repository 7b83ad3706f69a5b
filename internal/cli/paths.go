package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPathsCommand builds the paths inspection command.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config and data locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, configPath, dbPath, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "app: %s\n", opts.appName)
			fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			fmt.Fprintf(out, "config: %s\n", configPath)
			fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			fmt.Fprintf(out, "db: %s\n", dbPath)
			return nil
		},
	}
}

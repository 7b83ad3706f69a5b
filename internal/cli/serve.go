package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	serveradapter "github.com/rtgae/alignd/internal/adapters/server"
)

// newServeCommand builds the HTTP+MCP serve command.
func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		bind        string
		apiEndpoint string
		mcpEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP transport on one address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.openRuntime(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := rt.Close(); closeErr != nil {
					rt.logger.Warn("sqlite close failed", "err", closeErr)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// A program always exists so MCP clients can land somewhere.
			project, err := rt.svc.EnsureDefaultProject(ctx)
			if err != nil {
				return fmt.Errorf("ensure default project: %w", err)
			}
			rt.session.SetCurrentProject(project.ID)

			serverCfg := serveradapter.Config{
				HTTPBind:      firstNonEmpty(bind, rt.cfg.Server.Bind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
				ServerName:    opts.appName,
				ServerVersion: opts.version,
			}
			rt.logger.Info("server starting",
				"bind", serverCfg.HTTPBind,
				"api_endpoint", serverCfg.APIEndpoint,
				"mcp_endpoint", serverCfg.MCPEndpoint,
				"default_project", project.ID,
			)

			err = serveradapter.Run(ctx, serverCfg, serveradapter.Dependencies{
				Service: rt.svc,
				Session: rt.session,
			})
			if err != nil {
				rt.logger.Error("server stopped with error", "err", err)
				return err
			}
			rt.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (overrides config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path (overrides config)")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

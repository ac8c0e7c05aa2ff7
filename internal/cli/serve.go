package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/mcp"
)

// newServeCmd creates the 'serve' command for running the MCP server.
func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the tool-router MCP server using stdio transport.

The server exposes the pipeline to AI clients:
  • router_decide  - route a request without running it
  • router_process - route and carry out a request
  • router_execute - run one workspace tool
  • router_tools   - list or search the tools
  • router_budget  - split the context window for a request
  • router_session - inspect or reset the session`,
		Example: `  # Run directly
  tool-router serve

  # Add to an MCP client
  claude mcp add tool-router -- tool-router serve --workspace ~/notes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g)
		},
	}
}

// runServe runs the server until stdin closes or a signal arrives.
func runServe(parent context.Context, g *globals) error {
	rt, err := newRuntime(g.cfg, g.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	server := mcp.NewServer(rt.pipeline, g.logger.Named("mcp"))
	g.logger.Info("Serving MCP on stdio", zap.String("workspace", rt.workspace.Root()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		g.logger.Info("Shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := rt.Close(); err != nil {
			g.logger.Error("Error during shutdown", zap.Error(err))
			return err
		}
		return nil

	case err := <-errChan:
		if closeErr := rt.Close(); closeErr != nil {
			g.logger.Error("Error during cleanup", zap.Error(closeErr))
		}
		if err != nil && err != context.Canceled {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

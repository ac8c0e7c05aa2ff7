package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/budget"
	"github.com/khanglvm/tool-router/internal/pipeline"
)

// newRunCmd creates the 'run' command, which processes a single request.
func newRunCmd(g *globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <request...>",
		Short: "Process one request: run the plan or ask the model",
		Example: `  tool-router run "create a file called todo.md with content buy milk"
  tool-router run "explain the difference between tcp and udp"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := rt.pipeline.Process(ctx, strings.Join(args, " "))
			if jsonOutput && out != nil {
				if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
					return werr
				}
				return err
			}
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out, g.verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

// newChatCmd creates the interactive 'chat' command.
func newChatCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Read requests line by line and process each one in the same session, so
later requests can refer to files and tools used earlier.

Commands:
  /reset          archive the conversation and start a new session
  /session        show recent operations and tracked files
  /budget <text>  show the context allocation for text
  /quit           leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runChat(ctx, rt.pipeline, cmd.InOrStdin(), cmd.OutOrStdout(), g.logger, g.verbose)
		},
	}
}

// runChat is the read-process-print loop behind 'chat'.
func runChat(ctx context.Context, p *pipeline.Pipeline, in io.Reader, w io.Writer, logger *zap.Logger, verbose bool) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(w, "> ")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			p.Reset()
			fmt.Fprintf(w, "Started session %s\n", p.Store().SessionID())
		case line == "/session":
			printSession(w, p)
		case strings.HasPrefix(line, "/budget"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "/budget"))
			c, alloc := p.Budget(text, budget.ModeTools)
			printBudget(w, c, alloc)
		default:
			out, err := p.Process(ctx, line)
			if err != nil {
				logger.Debug("Turn failed", zap.Error(err))
				fmt.Fprintf(w, "error: %v\n", err)
			} else {
				printOutcome(w, out, verbose)
			}
		}
		fmt.Fprint(w, "> ")
	}
	fmt.Fprintln(w)
	return scanner.Err()
}

// printOutcome renders a processed turn.
func printOutcome(w io.Writer, out *pipeline.Outcome, verbose bool) {
	if verbose {
		d := out.Decision
		fmt.Fprintf(w, "[%s %.2f %s via %s]\n", d.Intent.Intent, d.Confidence, d.Tier, out.Path)
	}
	if out.Reply != "" {
		fmt.Fprintln(w, out.Reply)
	}
	if !out.Success && out.Error != "" && !strings.Contains(out.Reply, out.Error) {
		fmt.Fprintf(w, "error: %s\n", out.Error)
	}
}

func printSession(w io.Writer, p *pipeline.Pipeline) {
	store := p.Store()
	fmt.Fprintf(w, "Session %s\n", store.SessionID())
	ops := store.RecentOperations(10, "")
	if len(ops) == 0 {
		fmt.Fprintln(w, "  no operations yet")
	}
	for _, op := range ops {
		status := "ok"
		if !op.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "  %s  %-26s %s\n", op.Timestamp.Format("15:04:05"), op.Tool, status)
	}
	for _, f := range store.TrackedFiles() {
		fmt.Fprintf(w, "  file %s (%s)\n", f.Name, f.FileType)
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-router/internal/budget"
)

// newBudgetCmd creates the 'budget' command.
func newBudgetCmd(g *globals) *cobra.Command {
	var mode string
	var window int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "budget <request...>",
		Short: "Show how the context window would be split for a request",
		Example: `  tool-router budget "explain how raft elections work"
  tool-router budget --mode chat --window 8192 "hi"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if window <= 0 {
				window = g.cfg.Model.ContextWindow
			}
			text := strings.Join(args, " ")
			allocator := budget.NewAllocator(g.logger.Named("budget"))
			c, alloc := allocator.AllocateText(text, budget.ParseMode(mode), window, g.cfg.Budget.MinMemoryTokens)

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"complexity": c,
					"allocation": alloc,
					"report":     budget.Validate(alloc),
				})
			}
			printBudget(cmd.OutOrStdout(), c, alloc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(budget.ModeTools), "Allocation profile: tools or chat")
	cmd.Flags().IntVar(&window, "window", 0, "Context window in tokens (default from config)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func printBudget(w io.Writer, c budget.Complexity, a budget.Allocation) {
	fmt.Fprintf(w, "Complexity: %.2f (length %.2f, keywords %.2f, code %.2f, questions %.2f)\n",
		c.Score, c.Length, c.Keyword, c.Code, c.Question)
	fmt.Fprintf(w, "Mode:       %s, window %d\n", a.Mode, a.ContextWindow)
	fmt.Fprintf(w, "  system prompt    %6d\n", a.SystemPrompt)
	fmt.Fprintf(w, "  tool definitions %6d\n", a.ToolDefinitions)
	fmt.Fprintf(w, "  memory           %6d\n", a.ConversationMemory)
	fmt.Fprintf(w, "  response         %6d\n", a.ResponseGeneration)
	fmt.Fprintf(w, "  safety margin    %6d\n", a.SafetyMargin)
	fmt.Fprintf(w, "  reserved         %6d\n", a.Reserved)
	if a.MemoryAdjusted {
		fmt.Fprintf(w, "Memory raised to meet the %d token floor", a.MinMemory)
		if a.MemoryShortfall > 0 {
			fmt.Fprintf(w, " (%d short)", a.MemoryShortfall)
		}
		fmt.Fprintln(w)
	}

	r := budget.Validate(a)
	fmt.Fprintf(w, "Utilization: %.1f%%\n", r.Utilization)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-router/internal/pipeline"
)

// newDecideCmd creates the 'decide' command.
func newDecideCmd(g *globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "decide <request...>",
		Short: "Show how a request would be routed, without running it",
		Example: `  tool-router decide "write me a guide for git"
  tool-router decide --json "copy notes.md to backup/"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			d, err := rt.pipeline.Decide(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			printDecision(cmd.OutOrStdout(), d)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

// printDecision renders a decision for humans.
func printDecision(w io.Writer, d pipeline.Decision) {
	fmt.Fprintf(w, "Intent:     %s (%.2f)\n", d.Intent.Intent, d.Intent.Confidence)
	if d.Intent.Ambiguous {
		fmt.Fprintf(w, "            resolved from a tie: %s\n", d.Intent.Justification)
	}
	fmt.Fprintf(w, "Tier:       %s (score %.2f)\n", d.Tier, d.Score)
	fmt.Fprintf(w, "Strategy:   %s\n", d.Strategy)
	if d.Handoff != "" {
		fmt.Fprintf(w, "Handoff:    %s\n", d.Handoff)
	}
	for _, b := range d.Boosts {
		fmt.Fprintf(w, "Boost:      %s\n", b)
	}

	if d.Plan.HasTool() {
		label := "Plan:"
		if d.Plan.MultiStep {
			label = "Plan (" + d.Plan.Template + "):"
		}
		fmt.Fprintln(w, label)
		for i, s := range d.Plan.Steps {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, s.Tool, formatArgs(s.Params))
		}
	} else {
		fmt.Fprintln(w, "Plan:       none, the model answers directly")
	}
	if len(d.MissingArgs) > 0 {
		fmt.Fprintf(w, "Missing:    %s\n", strings.Join(d.MissingArgs, ", "))
	}

	fmt.Fprintf(w, "Budget:     memory %d, response %d of %d tokens (complexity %.2f)\n",
		d.Budget.ConversationMemory, d.Budget.ResponseGeneration, d.Budget.ContextWindow, d.Complexity.Score)
}

func formatArgs(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, k := range sortedKeys(params) {
		v := fmt.Sprint(params[k])
		if len(v) > 40 {
			v = v[:40] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	return strings.Join(parts, " ")
}

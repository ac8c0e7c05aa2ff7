package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// newToolsCmd creates the 'tools' command.
func newToolsCmd(g *globals) *cobra.Command {
	var query string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or search the workspace tools",
		Example: `  tool-router tools
  tool-router tools --search "back up a file"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			w := cmd.OutOrStdout()

			if query == "" {
				tools := rt.registry.Tools()
				if jsonOutput {
					out := make([]map[string]any, 0, len(tools))
					for _, t := range tools {
						out = append(out, map[string]any{"name": t.Name, "description": t.Description, "inputSchema": t.JSONSchema()})
					}
					return writeJSON(w, out)
				}
				fmt.Fprintf(w, "Tools (%d) in %s:\n\n", len(tools), rt.workspace.Root())
				for _, t := range tools {
					fmt.Fprintf(w, "  %-26s %s\n", t.Name, t.Description)
					if params := t.ParamNames(); len(params) > 0 {
						fmt.Fprintf(w, "  %-26s params: %s\n", "", strings.Join(params, ", "))
					}
				}
				return nil
			}

			catalog := rt.registry.Catalog()
			if catalog == nil {
				return fmt.Errorf("tool search is unavailable")
			}
			hits, err := catalog.Search(query, limit)
			if err != nil {
				return fmt.Errorf("failed to search tools: %w", err)
			}
			if jsonOutput {
				return writeJSON(w, hits)
			}
			if len(hits) == 0 {
				fmt.Fprintf(w, "No tools match %q\n", query)
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(w, "  %-26s %.3f  %s\n", h.Name, h.Score, h.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "search", "s", "", "Search text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum search results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

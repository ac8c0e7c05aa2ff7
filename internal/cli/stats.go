package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-router/internal/learning"
	"github.com/khanglvm/tool-router/internal/storage"
)

// newStatsCmd creates the 'stats' command, which ranks tools from the
// operation log.
func newStatsCmd(g *globals) *cobra.Command {
	var jsonOutput bool
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Rank tools by recent usage",
		Long: `Rank tools from the local operation log.

Score = 0.6*frequency + 0.3*recency + 0.1*success rate, over the last 7 days.
The log lives at learning.dbPath and is pruned after learning.retentionDays.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if !g.cfg.Learning.Enabled {
				fmt.Fprintln(w, "Learning is disabled (learning.enabled: false).")
				return nil
			}

			store := storage.NewStorage(g.cfg.Learning.DBPath, g.logger.Named("storage"))
			if err := store.Init(); err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			ranked, err := learning.RankTools(store, time.Now())
			if err != nil {
				return err
			}
			if top > 0 && len(ranked) > top {
				ranked = ranked[:top]
			}

			if jsonOutput {
				return writeJSON(w, ranked)
			}
			if len(ranked) == 0 {
				fmt.Fprintln(w, "No operations recorded in the last 7 days.")
				return nil
			}
			fmt.Fprintf(w, "%-26s %7s %6s %8s\n", "TOOL", "SCORE", "USES", "SUCCESS")
			for _, r := range ranked {
				fmt.Fprintf(w, "%-26s %7.3f %6d %7.0f%%\n", r.Tool, r.Score, r.Count, r.SuccessRate*100)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Show at most n tools (0 for all)")
	return cmd
}

/*
Package cli implements the tool-router command line.

Every command shares the root's persistent flags: --config selects the YAML
file, --workspace overrides the directory tools act on and --verbose turns
on debug logging. Logs go to stderr; command output goes to stdout.
*/
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/config"
	"github.com/khanglvm/tool-router/internal/logging"
	"github.com/khanglvm/tool-router/internal/version"
)

// globals holds state resolved in PersistentPreRunE.
type globals struct {
	configPath string
	workspace  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "tool-router",
		Short: "Route requests to workspace tools or a local model",
		Long: `tool-router classifies a request, plans the tool calls that satisfy it and
decides, by confidence tier, whether to run the plan directly or hand the
turn to a local model with the plan as advice.

Configuration lives in ~/.tool-router.yaml and is created on first use.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default ~/.tool-router.yaml)")
	cmd.PersistentFlags().StringVarP(&g.workspace, "workspace", "w", "", "Workspace directory tools act on")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newDecideCmd(g))
	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newChatCmd(g))
	cmd.AddCommand(newBudgetCmd(g))
	cmd.AddCommand(newToolsCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// init loads the configuration and builds the logger.
func (g *globals) init() error {
	cfg, err := config.LoadOrCreate(g.configPath)
	if err != nil {
		return err
	}
	if g.workspace != "" {
		cfg.Workspace = g.workspace
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON, Verbose: g.verbose})
	if err != nil {
		return err
	}

	g.cfg = cfg
	g.logger = logger
	return nil
}

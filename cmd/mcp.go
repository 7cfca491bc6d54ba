package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	kanbanmcp "github.com/joescharf/kanban/internal/mcp"
)

var (
	mcpOffline bool
	mcpItems   string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio, so assistants
can read boards and roadmaps. Configure it with:

  {
    "mcpServers": {
      "kanban": { "command": "kanban", "args": ["mcp"] }
    }
  }

Available tools: kanban_milestone_board, kanban_person_board,
kanban_stale_items, kanban_roadmap, kanban_classify_items`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpOffline, "offline", false, "Answer from the last fetched items instead of asking Launchpad")
	mcpCmd.Flags().StringVar(&mcpItems, "items", "", "Answer from work items in a YAML or JSON file")
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	// stdout carries the protocol.
	ui.Out = ui.ErrOut

	src, err := newSource(mcpItems, mcpOffline)
	if err != nil {
		return err
	}
	srv := kanbanmcp.NewServer(src, newChecker(), viper.GetBool("board.include_needs_testing"), viper.GetString("roadmap"))

	ctx, stop := signal.NotifyContext(cmdContext(), shutdownSignals()...)
	defer stop()
	return srv.ServeStdio(ctx, buildVersion)
}

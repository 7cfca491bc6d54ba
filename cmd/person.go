package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/kanban/internal/board"
)

var personOpts boardOptions

var personCmd = &cobra.Command{
	Use:   "person <name>",
	Short: "Draw the board for a person or team",
	Long: `Draw the kanban board of the bugs assigned to a person. For a team,
bugs assigned to the team or to any of its members are included. Bugs
released more than launchpad.released_within_days ago are left out.`,
	Example: `  kanban person jkakar -o jkakar.html
  kanban person landscape-team --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		personOpts.includeNeedsTesting = personOpts.includeTesting(cmd)
		return personRun(args[0], &personOpts)
	},
}

func init() {
	addBoardFlags(personCmd, &personOpts)
	rootCmd.AddCommand(personCmd)
}

func personRun(name string, opts *boardOptions) error {
	src, err := newSource(opts.itemsFile, opts.offline)
	if err != nil {
		return err
	}

	ui.VerboseLog("Fetching bugs assigned to %s", name)
	result, err := src.Person(cmdContext(), name)
	if err != nil {
		return err
	}
	reportResult(result)

	b := board.NewPersonBoard(name, opts.includeNeedsTesting)
	b.Fill(result.Items)
	return writeBoard(b, opts)
}

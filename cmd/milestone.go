package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/kanban/internal/board"
)

var milestoneOpts boardOptions

var milestoneCmd = &cobra.Command{
	Use:   "milestone <project> <milestone>",
	Short: "Draw the board for a project milestone",
	Long: `Draw the kanban board for every relevant bug targeted to a milestone.

The project may be a project group or a single project. Bugs are grouped
into one lane per story-* tag, with untagged bugs in a final lane.`,
	Example: `  kanban milestone landscape 11.02 -o board.html
  kanban milestone landscape 11.02 --format text
  kanban milestone landscape 11.02 --items bugs.yaml --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		milestoneOpts.includeNeedsTesting = milestoneOpts.includeTesting(cmd)
		return milestoneRun(args[0], args[1], &milestoneOpts)
	},
}

func init() {
	addBoardFlags(milestoneCmd, &milestoneOpts)
	rootCmd.AddCommand(milestoneCmd)
}

func milestoneRun(project, milestone string, opts *boardOptions) error {
	src, err := newSource(opts.itemsFile, opts.offline)
	if err != nil {
		return err
	}

	ui.VerboseLog("Fetching bugs for %s %s", project, milestone)
	result, err := src.Milestone(cmdContext(), project, milestone)
	if err != nil {
		return err
	}
	reportResult(result)

	b := board.NewMilestoneBoard(project, milestone, opts.includeNeedsTesting)
	b.Fill(result.Items)
	return writeBoard(b, opts)
}

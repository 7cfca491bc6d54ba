package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/output"
	"github.com/joescharf/kanban/internal/tracker"
)

var classifyIncludeNeedsTesting bool

var classifyCmd = &cobra.Command{
	Use:   "classify <items-file>",
	Short: "Show the category of each work item in a file",
	Long: `Read work items from a YAML or JSON file and print the board category
of each, most urgent first, followed by a count per category.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := boardOptions{includeNeedsTesting: classifyIncludeNeedsTesting}
		return classifyRun(args[0], opts.includeTesting(cmd))
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyIncludeNeedsTesting, "include-needs-testing", false, "Report needs-testing separately from needs-release")
	rootCmd.AddCommand(classifyCmd)
}

func classifyRun(path string, includeNeedsTesting bool) error {
	items, err := tracker.LoadItems(path)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		ui.Info("No work items found.")
		return nil
	}
	models.SortWorkItems(items)

	checker := newChecker()
	counts := make(map[models.Category]int)
	table := ui.Table([]string{"ID", "Priority", "Status", "Category", "Stale", "Title"})
	for _, item := range items {
		c := models.Classify(item, includeNeedsTesting)
		counts[c]++
		_ = table.Append([]string{
			item.ID,
			output.PriorityColor(item.Priority),
			item.Status.String(),
			output.CategoryColor(c),
			output.LevelColor(checker.Level(item)),
			item.Title,
		})
	}
	_ = table.Render()

	var parts []string
	for _, c := range models.Categories {
		if n := counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c, n))
		}
	}
	fmt.Fprintln(ui.Out)
	ui.Info("%d items: %s", len(items), strings.Join(parts, ", "))
	return nil
}

package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/joescharf/kanban/internal/render"
	"github.com/joescharf/kanban/internal/roadmap"
)

var roadmapOpts boardOptions

var roadmapCmd = &cobra.Command{
	Use:   "roadmap <file>",
	Short: "Draw a roadmap file",
	Long: `Draw a roadmap of time periods, each listing stories by track.

Files ending in .yaml or .yml are read as YAML, anything else as JSON.`,
	Example: `  kanban roadmap roadmap.json -o roadmap.html
  kanban roadmap roadmap.yaml --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return roadmapRun(args[0], &roadmapOpts)
	},
}

func init() {
	addOutputFlags(roadmapCmd, &roadmapOpts)
	rootCmd.AddCommand(roadmapCmd)
}

func roadmapRun(path string, opts *boardOptions) error {
	f, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	p, err := roadmap.LoadFile(path)
	if err != nil {
		return err
	}
	ui.VerboseLog("%d time periods, tracks: %v", len(p.TimeSpans), p.Tracks())

	r := newRenderer()
	return writeOutput(opts.outputFile, func(w io.Writer) error {
		return r.Roadmap(w, p, f)
	})
}

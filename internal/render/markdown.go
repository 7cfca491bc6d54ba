package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/roadmap"
)

// BoardMarkdown writes b as markdown with one section per column.
func (r *Renderer) BoardMarkdown(w io.Writer, b *board.Board) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", Heading(b))
	r.markdownGrouping(&sb, b.All, "##")

	for _, story := range b.Stories() {
		name := story.Name
		if story.Ungrouped {
			name = "No story"
		}
		fmt.Fprintf(&sb, "\n## %s\n", name)
		r.markdownGrouping(&sb, story, "###")
	}
	fmt.Fprintf(&sb, "\n_Generated %s_\n", Timestamp(r.now()))

	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) markdownGrouping(sb *strings.Builder, g *board.Grouping, level string) {
	for _, c := range g.Categories() {
		items := g.Bucket(c)
		fmt.Fprintf(sb, "\n%s %s (%d)\n\n", level, c.Title(), len(items))
		for _, item := range items {
			fmt.Fprintf(sb, "- [#%s](%s) %s _%s_", item.ID, BugURL(item), item.Title, item.Priority)
			if item.Assignee != "" {
				fmt.Fprintf(sb, " @%s", item.Assignee)
			}
			if item.Branch != "" {
				fmt.Fprintf(sb, " [%s](%s)", BranchName(item.Branch), BranchURL(item))
			}
			switch r.checker().LevelAt(item, r.now()) {
			case health.LevelDanger:
				sb.WriteString(" **danger**")
			case health.LevelWarn:
				sb.WriteString(" **warn**")
			}
			sb.WriteString("\n")
		}
	}
}

// RoadmapMarkdown writes p as markdown with one section per time span.
func (r *Renderer) RoadmapMarkdown(w io.Writer, p *roadmap.Plan) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s roadmap\n", p.Project)
	for _, span := range p.TimeSpans {
		fmt.Fprintf(&sb, "\n## %s (%s - %s)\n", span.Name, span.Start.Format("Jan"), span.End.Format("Jan"))
		for _, track := range span.Tracks() {
			fmt.Fprintf(&sb, "\n### %s\n\n", track)
			for _, item := range span.ItemsByTrack(track) {
				name := item.Name
				if item.Link != "" {
					name = fmt.Sprintf("[%s](%s)", item.Name, item.Link)
				}
				fmt.Fprintf(&sb, "- %s: %s _%s_", name, item.Description, item.Status)
				if len(item.Assignees) > 0 {
					fmt.Fprintf(&sb, " (%s)", strings.Join(item.Assignees, ", "))
				}
				sb.WriteString("\n")
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

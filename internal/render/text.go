package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/roadmap"
)

var (
	colorMuted  = lipgloss.Color("#636363")
	colorTitle  = lipgloss.Color("#00BFFF")
	colorWarn   = lipgloss.Color("#FFD700")
	colorDanger = lipgloss.Color("#FF5252")

	categoryColors = map[models.Category]lipgloss.Color{
		models.CategoryQueued:       lipgloss.Color("#8C8C8C"),
		models.CategoryInProgress:   lipgloss.Color("#5B8DEF"),
		models.CategoryNeedsReview:  lipgloss.Color("#FFD700"),
		models.CategoryNeedsTesting: lipgloss.Color("#C792EA"),
		models.CategoryNeedsRelease: lipgloss.Color("#00E676"),
		models.CategoryReleased:     lipgloss.Color("#EEEEEE"),
	}

	styleHeading = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

const (
	minColumnWidth = 14
	maxColumnWidth = 40
)

// BoardText writes b as side-by-side columns for a terminal, one block for
// the whole board followed by one per story.
func (r *Renderer) BoardText(w io.Writer, b *board.Board) error {
	var sb strings.Builder
	sb.WriteString(styleHeading.Render(Heading(b)))
	sb.WriteString("\n\n")
	sb.WriteString(r.lane(b.All))
	sb.WriteString("\n")

	for _, story := range b.Stories() {
		name := story.Name
		if story.Ungrouped {
			name = "No story"
		}
		sb.WriteString("\n")
		sb.WriteString(styleHeading.Render(fmt.Sprintf("%s (%d)", name, len(story.Items))))
		sb.WriteString("\n")
		sb.WriteString(r.lane(story))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) lane(g *board.Grouping) string {
	cats := g.Categories()
	width := r.columnWidth(len(cats))

	rendered := make([]string, 0, len(cats))
	for _, c := range cats {
		var sb strings.Builder
		header := lipgloss.NewStyle().
			Foreground(categoryColors[c]).
			Bold(true).
			Width(width).
			Align(lipgloss.Center)
		items := g.Bucket(c)
		sb.WriteString(header.Render(fmt.Sprintf("%s (%d)", c.Title(), len(items))))
		sb.WriteString("\n")
		sb.WriteString(styleMuted.Render(strings.Repeat("─", width)))
		sb.WriteString("\n")

		if len(items) == 0 {
			sb.WriteString(styleMuted.Width(width).Align(lipgloss.Center).Render("·"))
			sb.WriteString("\n")
		}
		for _, item := range items {
			sb.WriteString(r.card(item, width))
			sb.WriteString("\n")
		}
		rendered = append(rendered, lipgloss.NewStyle().Width(width).MarginRight(1).Render(sb.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (r *Renderer) card(item *models.WorkItem, width int) string {
	line := truncate("#"+item.ID+" "+item.Title, width)
	switch r.checker().LevelAt(item, r.now()) {
	case health.LevelDanger:
		return lipgloss.NewStyle().Foreground(colorDanger).Render(line)
	case health.LevelWarn:
		return lipgloss.NewStyle().Foreground(colorWarn).Render(line)
	}
	return line
}

func (r *Renderer) columnWidth(n int) int {
	if n <= 0 {
		return minColumnWidth
	}
	w := (r.width() - n) / n
	return min(max(w, minColumnWidth), maxColumnWidth)
}

// truncate shortens s to width runes, ending with an ellipsis when cut.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// RoadmapText writes p as a list of time spans, each broken down by track.
func (r *Renderer) RoadmapText(w io.Writer, p *roadmap.Plan) error {
	var sb strings.Builder
	sb.WriteString(styleHeading.Render(p.Project + " roadmap"))
	sb.WriteString("\n")
	for _, span := range p.TimeSpans {
		sb.WriteString("\n")
		sb.WriteString(styleHeading.Render(fmt.Sprintf("%s (%d)", span.Name, len(span.Items))))
		sb.WriteString(" ")
		sb.WriteString(styleMuted.Render(span.Start.Format(roadmap.DateLayout) + " to " + span.End.Format(roadmap.DateLayout)))
		sb.WriteString("\n")
		for _, track := range span.Tracks() {
			sb.WriteString("  " + track + "\n")
			for _, item := range span.ItemsByTrack(track) {
				fmt.Fprintf(&sb, "    [%s] %s", item.Status, item.Name)
				if len(item.Assignees) > 0 {
					sb.WriteString(styleMuted.Render(" (" + strings.Join(item.Assignees, ", ") + ")"))
				}
				sb.WriteString("\n")
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/roadmap"
	"github.com/joescharf/kanban/internal/ui"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// gridColumns is the width of the roadmap grid.
const gridColumns = 12

type boardPage struct {
	Heading    string
	Stylesheet template.CSS
	View       board.View
	Now        string
}

type roadmapPage struct {
	Project    string
	Stylesheet template.CSS
	Headings   []roadmapHeading
	Tracks     []roadmapTrack
	Now        string
}

type roadmapHeading struct {
	CSSClass string
	Name     string
	Count    int
	Span     string
}

type roadmapTrack struct {
	Name  string
	Cells []roadmapCell
}

type roadmapCell struct {
	CSSClass string
	Items    []*roadmap.PlanItem
}

func (r *Renderer) parse(name string) (*template.Template, error) {
	funcs := template.FuncMap{
		"branchName":      BranchName,
		"branchURL":       BranchURL,
		"bugURL":          BugURL,
		"importanceClass": ImportanceCSSClass,
		"statusClass": func(s roadmap.PlanStatus) string {
			return StatusCSSClass(string(s))
		},
		"level": func(item *models.WorkItem) string {
			if l := r.checker().LevelAt(item, r.now()); l != health.LevelOK {
				return l.String()
			}
			return ""
		},
		"join": strings.Join,
	}
	t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return t, nil
}

// BoardHTML writes b as a standalone HTML page.
func (r *Renderer) BoardHTML(w io.Writer, b *board.Board) error {
	t, err := r.parse("board.html.tmpl")
	if err != nil {
		return err
	}
	css, err := ui.Stylesheet("kanban.css")
	if err != nil {
		return err
	}
	page := boardPage{
		Heading:    Heading(b),
		Stylesheet: template.CSS(css),
		View:       board.NewView(b),
		Now:        Timestamp(r.now()),
	}
	if err := t.Execute(w, page); err != nil {
		return fmt.Errorf("render board: %w", err)
	}
	return nil
}

// RoadmapHTML writes p as a standalone HTML page laid out on a twelve
// column grid, one column block per time span and one row per track.
func (r *Renderer) RoadmapHTML(w io.Writer, p *roadmap.Plan) error {
	t, err := r.parse("roadmap.html.tmpl")
	if err != nil {
		return err
	}
	css, err := ui.Stylesheet("roadmap.css")
	if err != nil {
		return err
	}

	width := gridColumns
	if n := len(p.TimeSpans); n > 0 {
		width = max(gridColumns/n, 1)
	}
	cellClass := func(i int) string {
		return fmt.Sprintf("position-%d width-%d cell", i*width, width)
	}

	page := roadmapPage{
		Project:    p.Project,
		Stylesheet: template.CSS(css),
		Now:        Timestamp(r.now()),
	}
	for i, span := range p.TimeSpans {
		page.Headings = append(page.Headings, roadmapHeading{
			CSSClass: cellClass(i),
			Name:     span.Name,
			Count:    len(span.Items),
			Span:     span.Start.Format("Jan") + " - " + span.End.Format("Jan"),
		})
	}
	for _, track := range p.Tracks() {
		row := roadmapTrack{Name: track}
		for i, span := range p.TimeSpans {
			row.Cells = append(row.Cells, roadmapCell{
				CSSClass: cellClass(i),
				Items:    span.ItemsByTrack(track),
			})
		}
		page.Tracks = append(page.Tracks, row)
	}

	if err := t.Execute(w, page); err != nil {
		return fmt.Errorf("render roadmap: %w", err)
	}
	return nil
}

// Heading is the page title for a board.
func Heading(b *board.Board) string {
	if b.IsMilestone() && b.Project != "" {
		return b.Project + " " + b.Name()
	}
	return b.Name()
}

package board

import (
	"github.com/joescharf/kanban/internal/models"
)

// ColumnView is one category column of a grouping.
type ColumnView struct {
	Category string             `json:"category"`
	Title    string             `json:"title"`
	Items    []*models.WorkItem `json:"items"`
}

// GroupingView is the serializable form of a Grouping.
type GroupingView struct {
	Name      string       `json:"name,omitempty"`
	Ungrouped bool         `json:"ungrouped,omitempty"`
	Total     int          `json:"total"`
	Columns   []ColumnView `json:"columns"`
}

// View is the serializable form of a Board, used by the API, the MCP tools
// and JSON export.
type View struct {
	Kind                Kind           `json:"kind"`
	Name                string         `json:"name"`
	Project             string         `json:"project,omitempty"`
	IncludeNeedsTesting bool           `json:"include_needs_testing"`
	Board               GroupingView   `json:"board"`
	Stories             []GroupingView `json:"stories"`
}

// NewGroupingView captures the columns of g in board order.
func NewGroupingView(g *Grouping) GroupingView {
	v := GroupingView{
		Name:      g.Name,
		Ungrouped: g.Ungrouped,
		Total:     len(g.Items),
	}
	for _, c := range g.Categories() {
		items := g.Bucket(c)
		if items == nil {
			items = []*models.WorkItem{}
		}
		v.Columns = append(v.Columns, ColumnView{
			Category: c.String(),
			Title:    c.Title(),
			Items:    items,
		})
	}
	return v
}

// NewView captures b and its stories.
func NewView(b *Board) View {
	v := View{
		Kind:                b.Kind,
		Name:                b.Name(),
		Project:             b.Project,
		IncludeNeedsTesting: b.IncludeNeedsTesting(),
		Board:               NewGroupingView(b.All),
		Stories:             []GroupingView{},
	}
	for _, s := range b.Stories() {
		v.Stories = append(v.Stories, NewGroupingView(s))
	}
	return v
}

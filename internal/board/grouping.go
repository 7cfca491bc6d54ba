// Package board groups classified work items into kanban columns and
// story lanes.
//
// A Grouping holds one list of every item added to it plus one list per
// category. Groupings are append-only and not safe for concurrent use;
// callers adding from several goroutines must serialize calls to Add.
package board

import (
	"github.com/joescharf/kanban/internal/models"
)

// Grouping is a named collection of work items organized into categories.
// The ungrouped grouping collects items that carry no story tag.
type Grouping struct {
	Name                string
	Ungrouped           bool
	IncludeNeedsTesting bool

	Items        []*models.WorkItem
	Queued       []*models.WorkItem
	InProgress   []*models.WorkItem
	NeedsReview  []*models.WorkItem
	NeedsTesting []*models.WorkItem
	NeedsRelease []*models.WorkItem
	Released     []*models.WorkItem
}

// NewGrouping returns an empty named grouping.
func NewGrouping(name string, includeNeedsTesting bool) *Grouping {
	return &Grouping{Name: name, IncludeNeedsTesting: includeNeedsTesting}
}

// newUngrouped returns the grouping for items without a story tag.
func newUngrouped(includeNeedsTesting bool) *Grouping {
	return &Grouping{Ungrouped: true, IncludeNeedsTesting: includeNeedsTesting}
}

// Add appends item to the grouping and to the bucket for its category, and
// returns that category.
func (g *Grouping) Add(item *models.WorkItem) models.Category {
	g.Items = append(g.Items, item)
	c := models.Classify(item, g.IncludeNeedsTesting)
	bucket := g.bucket(c)
	*bucket = append(*bucket, item)
	return c
}

// Bucket returns the items in category c, in the order they were added.
func (g *Grouping) Bucket(c models.Category) []*models.WorkItem {
	if b := g.bucket(c); b != nil {
		return *b
	}
	return nil
}

// Categories returns the categories shown as columns for this grouping.
// The needs-testing column only exists when it is enabled.
func (g *Grouping) Categories() []models.Category {
	out := make([]models.Category, 0, len(models.Categories))
	for _, c := range models.Categories {
		if c == models.CategoryNeedsTesting && !g.IncludeNeedsTesting {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Counts returns the number of items per category.
func (g *Grouping) Counts() map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[c] = len(g.Bucket(c))
	}
	return counts
}

func (g *Grouping) bucket(c models.Category) *[]*models.WorkItem {
	switch c {
	case models.CategoryQueued:
		return &g.Queued
	case models.CategoryInProgress:
		return &g.InProgress
	case models.CategoryNeedsReview:
		return &g.NeedsReview
	case models.CategoryNeedsTesting:
		return &g.NeedsTesting
	case models.CategoryNeedsRelease:
		return &g.NeedsRelease
	case models.CategoryReleased:
		return &g.Released
	}
	return nil
}

// CompareGroupings orders groupings by name with the ungrouped grouping
// always last.
func CompareGroupings(a, b *Grouping) int {
	switch {
	case a.Ungrouped && b.Ungrouped:
		return 0
	case a.Ungrouped:
		return 1
	case b.Ungrouped:
		return -1
	}
	if a.Name < b.Name {
		return -1
	}
	if a.Name > b.Name {
		return 1
	}
	return 0
}

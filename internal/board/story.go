package board

import (
	"slices"

	"github.com/joescharf/kanban/internal/models"
)

// StoryBoard is a grouping that also splits its items into one story
// grouping per story tag. Items without a story tag go to the ungrouped
// story. Each story classifies its items on its own and shares no buckets
// with the board.
type StoryBoard struct {
	All *Grouping

	stories   map[string]*Grouping
	ungrouped *Grouping
}

// NewStoryBoard returns an empty story board.
func NewStoryBoard(name string, includeNeedsTesting bool) *StoryBoard {
	return &StoryBoard{
		All:     NewGrouping(name, includeNeedsTesting),
		stories: make(map[string]*Grouping),
	}
}

// Name returns the board name.
func (s *StoryBoard) Name() string { return s.All.Name }

// IncludeNeedsTesting reports whether the needs-testing column is enabled.
func (s *StoryBoard) IncludeNeedsTesting() bool { return s.All.IncludeNeedsTesting }

// Add adds item to the board and to every story it is tagged with, or to
// the ungrouped story when it has no story tags.
func (s *StoryBoard) Add(item *models.WorkItem) models.Category {
	c := s.All.Add(item)
	for _, story := range s.storiesFor(item) {
		story.Add(item)
	}
	return c
}

// Stories returns every story, sorted by name with the ungrouped story last.
func (s *StoryBoard) Stories() []*Grouping {
	out := make([]*Grouping, 0, len(s.stories)+1)
	for _, g := range s.stories {
		out = append(out, g)
	}
	if s.ungrouped != nil {
		out = append(out, s.ungrouped)
	}
	slices.SortFunc(out, CompareGroupings)
	return out
}

// Story returns the story for a story tag.
func (s *StoryBoard) Story(name string) (*Grouping, bool) {
	g, ok := s.stories[name]
	return g, ok
}

// Ungrouped returns the story holding untagged items, or nil when every
// item added so far had a story tag.
func (s *StoryBoard) Ungrouped() *Grouping {
	return s.ungrouped
}

func (s *StoryBoard) storiesFor(item *models.WorkItem) []*Grouping {
	names := item.StoryTags()
	if len(names) == 0 {
		if s.ungrouped == nil {
			s.ungrouped = newUngrouped(s.All.IncludeNeedsTesting)
		}
		return []*Grouping{s.ungrouped}
	}

	out := make([]*Grouping, 0, len(names))
	for _, name := range names {
		g, ok := s.stories[name]
		if !ok {
			g = NewGrouping(name, s.All.IncludeNeedsTesting)
			s.stories[name] = g
		}
		out = append(out, g)
	}
	return out
}

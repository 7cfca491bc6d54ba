package board

import (
	"slices"

	"github.com/joescharf/kanban/internal/models"
)

// Kind identifies what a board was built from.
type Kind string

const (
	KindMilestone Kind = "milestone"
	KindPerson    Kind = "person"
)

// Board is a story board for a milestone or for a person or team.
type Board struct {
	*StoryBoard

	Kind Kind
	// Project is the project or project group a milestone belongs to. It is
	// empty for person boards.
	Project string
}

// NewMilestoneBoard returns an empty board for a milestone of project.
func NewMilestoneBoard(project, milestone string, includeNeedsTesting bool) *Board {
	return &Board{
		StoryBoard: NewStoryBoard(milestone, includeNeedsTesting),
		Kind:       KindMilestone,
		Project:    project,
	}
}

// NewPersonBoard returns an empty board for the work assigned to a person
// or team.
func NewPersonBoard(person string, includeNeedsTesting bool) *Board {
	return &Board{
		StoryBoard: NewStoryBoard(person, includeNeedsTesting),
		Kind:       KindPerson,
	}
}

// IsMilestone reports whether b was built for a milestone.
func (b *Board) IsMilestone() bool {
	return b.Kind == KindMilestone
}

// Fill adds items to b, most urgent first. The input slice is not modified.
func (b *Board) Fill(items []*models.WorkItem) {
	sorted := slices.Clone(items)
	models.SortWorkItems(sorted)
	for _, item := range sorted {
		b.Add(item)
	}
}

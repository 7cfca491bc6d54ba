// Package roadmap models a high-level project plan: stories scheduled into
// time spans and grouped into tracks.
package roadmap

import (
	"slices"
	"time"
)

// PlanStatus is the declared state of a plan item. It is not derived from
// any tracker data, and values other than the constants below are carried
// through unchanged.
type PlanStatus string

const (
	StatusQueued PlanStatus = "Queued"
	StatusActive PlanStatus = "Active"
	StatusDone   PlanStatus = "Done"
)

// Plan is a roadmap for one project.
type Plan struct {
	Project   string
	TimeSpans []*TimeSpan
}

// NewPlan returns an empty plan for project.
func NewPlan(project string) *Plan {
	return &Plan{Project: project, TimeSpans: []*TimeSpan{}}
}

// Add appends a time span.
func (p *Plan) Add(span *TimeSpan) {
	p.TimeSpans = append(p.TimeSpans, span)
}

// Tracks returns the sorted set of tracks used across every time span.
func (p *Plan) Tracks() []string {
	tracks := []string{}
	for _, span := range p.TimeSpans {
		for _, track := range span.Tracks() {
			if !slices.Contains(tracks, track) {
				tracks = append(tracks, track)
			}
		}
	}
	slices.Sort(tracks)
	return tracks
}

// TimeSpan is a window of time in which plan items are scheduled to be
// completed.
type TimeSpan struct {
	Name  string
	Start time.Time
	End   time.Time
	Items []*PlanItem

	byTrack map[string][]*PlanItem
}

// NewTimeSpan returns an empty time span.
func NewTimeSpan(name string, start, end time.Time) *TimeSpan {
	return &TimeSpan{
		Name:    name,
		Start:   start,
		End:     end,
		Items:   []*PlanItem{},
		byTrack: make(map[string][]*PlanItem),
	}
}

// Add appends item to the span and to the list for its track.
func (s *TimeSpan) Add(item *PlanItem) {
	if s.byTrack == nil {
		s.byTrack = make(map[string][]*PlanItem)
	}
	s.Items = append(s.Items, item)
	s.byTrack[item.Track] = append(s.byTrack[item.Track], item)
}

// Tracks returns the tracks of the items in this span, sorted.
func (s *TimeSpan) Tracks() []string {
	tracks := make([]string, 0, len(s.byTrack))
	for track := range s.byTrack {
		tracks = append(tracks, track)
	}
	slices.Sort(tracks)
	return tracks
}

// ItemsByTrack returns the items in track in the order they were added, or
// an empty slice when the span has no item in that track.
func (s *TimeSpan) ItemsByTrack(track string) []*PlanItem {
	if items, ok := s.byTrack[track]; ok {
		return items
	}
	return []*PlanItem{}
}

// PlanItem is a story scheduled on the roadmap.
type PlanItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Track       string     `json:"track"`
	Status      PlanStatus `json:"status"`
	Link        string     `json:"link,omitempty"`
	Assignees   []string   `json:"assignees"`
}

// NewPlanItem returns a plan item with its assignees sorted by name.
func NewPlanItem(name, description, track string, status PlanStatus, link string, assignees []string) *PlanItem {
	sorted := slices.Clone(assignees)
	if sorted == nil {
		sorted = []string{}
	}
	slices.Sort(sorted)
	return &PlanItem{
		Name:        name,
		Description: description,
		Track:       track,
		Status:      status,
		Link:        link,
		Assignees:   sorted,
	}
}

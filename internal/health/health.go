// Package health flags work items that have been sitting in progress or in
// review for too long.
package health

import (
	"time"

	"github.com/joescharf/kanban/internal/models"
)

// Thresholds are ages in business days after which an item is flagged.
type Thresholds struct {
	InProgress int `json:"in_progress_days" yaml:"in_progress_days"`
	Review     int `json:"review_days" yaml:"review_days"`
}

var (
	DefaultWarn   = Thresholds{InProgress: 3, Review: 1}
	DefaultDanger = Thresholds{InProgress: 7, Review: 3}
)

// Level is how stale an item is.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelDanger
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelDanger:
		return "danger"
	default:
		return "ok"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// WarnDate returns the date age business days after start. Days are added
// one at a time and Saturdays and Sundays do not count.
func WarnDate(start time.Time, age int) time.Time {
	d := start
	for age > 0 {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			age--
		}
	}
	return d
}

// Warn reports whether item has been waiting longer than allowed at now.
// Items in review are measured from the proposal creation date and items in
// progress from the date work started. Anything else is never flagged.
func Warn(item *models.WorkItem, inProgressAge, reviewAge int, now time.Time) bool {
	switch {
	case item.NeedsReview() && item.ProposalCreated != nil:
		return now.After(WarnDate(*item.ProposalCreated, reviewAge))
	case item.InProgress() && item.InProgressSince != nil:
		return now.After(WarnDate(*item.InProgressSince, inProgressAge))
	}
	return false
}

// Checker grades items against warn and danger thresholds.
type Checker struct {
	Warn   Thresholds
	Danger Thresholds
	Now    func() time.Time
}

// NewChecker returns a Checker using the default thresholds and the wall
// clock in UTC.
func NewChecker() *Checker {
	return &Checker{
		Warn:   DefaultWarn,
		Danger: DefaultDanger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Level grades item at the checker's current time.
func (c *Checker) Level(item *models.WorkItem) Level {
	return c.LevelAt(item, c.now())
}

// LevelAt grades item at now. Danger is checked first.
func (c *Checker) LevelAt(item *models.WorkItem, now time.Time) Level {
	switch {
	case Warn(item, c.Danger.InProgress, c.Danger.Review, now):
		return LevelDanger
	case Warn(item, c.Warn.InProgress, c.Warn.Review, now):
		return LevelWarn
	}
	return LevelOK
}

func (c *Checker) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

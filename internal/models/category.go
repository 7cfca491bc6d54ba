package models

import (
	"slices"
	"strings"
)

// Category is the board column a work item occupies.
type Category int

const (
	CategoryQueued Category = iota
	CategoryInProgress
	CategoryNeedsReview
	CategoryNeedsTesting
	CategoryNeedsRelease
	CategoryReleased
)

// Categories lists every category in board column order.
var Categories = []Category{
	CategoryQueued, CategoryInProgress, CategoryNeedsReview,
	CategoryNeedsTesting, CategoryNeedsRelease, CategoryReleased,
}

var categoryNames = [...]string{
	CategoryQueued:       "queued",
	CategoryInProgress:   "in-progress",
	CategoryNeedsReview:  "needs-review",
	CategoryNeedsTesting: "needs-testing",
	CategoryNeedsRelease: "needs-release",
	CategoryReleased:     "released",
}

var categoryTitles = [...]string{
	CategoryQueued:       "Queued",
	CategoryInProgress:   "In progress",
	CategoryNeedsReview:  "Needs review",
	CategoryNeedsTesting: "Needs testing",
	CategoryNeedsRelease: "Verified",
	CategoryReleased:     "Released",
}

func (c Category) String() string {
	if c < CategoryQueued || c > CategoryReleased {
		return "unknown"
	}
	return categoryNames[c]
}

// Title is the column heading shown on a board.
func (c Category) Title() string {
	if c < CategoryQueued || c > CategoryReleased {
		return "Unknown"
	}
	return categoryTitles[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify assigns item to exactly one category. The checks run in a fixed
// order and the first match wins, so a verified Fix Committed item is
// always needs-release. When includeNeedsTesting is false, items that need
// testing are reported as needs-release.
func Classify(item *WorkItem, includeNeedsTesting bool) Category {
	switch {
	case item.Released():
		return CategoryReleased
	case item.NeedsRelease():
		return CategoryNeedsRelease
	case item.NeedsTesting():
		if includeNeedsTesting {
			return CategoryNeedsTesting
		}
		return CategoryNeedsRelease
	case item.NeedsReview():
		return CategoryNeedsReview
	case item.InProgress():
		return CategoryInProgress
	default:
		return CategoryQueued
	}
}

// CompareWorkItems orders items by priority, most urgent first, then by ID.
func CompareWorkItems(a, b *WorkItem) int {
	if a.Priority != b.Priority {
		if a.Priority < b.Priority {
			return -1
		}
		return 1
	}
	return compareIDs(a.ID, b.ID)
}

// compareIDs orders all-digit IDs numerically and anything else lexically.
func compareIDs(a, b string) int {
	if !isDigits(a) || !isDigits(b) {
		return strings.Compare(a, b)
	}
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SortWorkItems sorts items in place using CompareWorkItems.
func SortWorkItems(items []*WorkItem) {
	slices.SortStableFunc(items, CompareWorkItems)
}

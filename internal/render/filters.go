// Package render turns boards and roadmaps into HTML pages, terminal
// columns, markdown and JSON.
package render

import (
	"strings"
	"time"

	"github.com/joescharf/kanban/internal/models"
)

// CodeHostURL is prepended to a branch path to link to its code page.
const CodeHostURL = "https://code.launchpad.net/"

// BugTrackerURL is prepended to a work item ID to link to the bug.
const BugTrackerURL = "https://bugs.launchpad.net/bugs/"

// TimestampLayout formats the generation time shown in page footers.
const TimestampLayout = "Mon _2 Jan at 15:04 UTC"

// BranchName returns the last path segment of a branch URL.
func BranchName(branch string) string {
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		return branch[i+1:]
	}
	return branch
}

// BranchURL links to the item's merge proposal when it has one, and to the
// code page of its branch otherwise. Branches are written as lp:path.
func BranchURL(item *models.WorkItem) string {
	if item.HasProposal() {
		return item.Proposal
	}
	if item.Branch == "" {
		return ""
	}
	return CodeHostURL + strings.TrimPrefix(item.Branch, "lp:")
}

// BugURL links to the item in the bug tracker.
func BugURL(item *models.WorkItem) string {
	return BugTrackerURL + item.ID
}

// ImportanceCSSClass returns the CSS class for a priority, e.g.
// "critical-importance".
func ImportanceCSSClass(p models.Priority) string {
	return cssClass(p.String(), "importance")
}

// StatusCSSClass returns the CSS class for a roadmap status, e.g.
// "queued-status".
func StatusCSSClass(status string) string {
	return cssClass(status, "status")
}

func cssClass(name, suffix string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	return name + "-" + suffix
}

// Timestamp formats t in UTC for page footers.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

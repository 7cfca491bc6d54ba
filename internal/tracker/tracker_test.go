package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/kanban/internal/models"
)

const itemsYAML = `
- id: "101"
  project: landscape
  priority: Critical
  status: In Progress
  title: Crash on start
  assignee: jkakar
  in_progress_since: 2011-01-31T00:00:00Z
  branch: lp:~jkakar/landscape/crash
  proposal: https://code.launchpad.net/~jkakar/landscape/crash/+merge/1
  proposal_status: Needs review
  tags: [story-login]
- id: "102"
  project: landscape-client
  priority: Low
  status: Fix Committed
  title: Typo
  assignee: therve
  tags: [verified]
`

const itemsJSON = `[
  {"id": "101", "project": "landscape", "priority": "Critical", "status": "In Progress",
   "title": "Crash on start", "assignee": "jkakar", "in_progress_since": "2011-01-31T00:00:00Z",
   "branch": "lp:~jkakar/landscape/crash",
   "proposal": "https://code.launchpad.net/~jkakar/landscape/crash/+merge/1",
   "proposal_status": "Needs review", "tags": ["story-login"]},
  {"id": "102", "project": "landscape-client", "priority": "Low", "status": "Fix Committed",
   "title": "Typo", "assignee": "therve", "tags": ["verified"]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadItems_FormatsAgree(t *testing.T) {
	fromYAML, err := LoadItems(writeFile(t, "items.yaml", itemsYAML))
	require.NoError(t, err)
	fromJSON, err := LoadItems(writeFile(t, "items.json", itemsJSON))
	require.NoError(t, err)

	require.Len(t, fromYAML, 2)
	require.Len(t, fromJSON, 2)
	for i := range fromYAML {
		assert.Equal(t, fromJSON[i].ID, fromYAML[i].ID)
		assert.Equal(t, fromJSON[i].Priority, fromYAML[i].Priority)
		assert.Equal(t, fromJSON[i].Status, fromYAML[i].Status)
		assert.Equal(t, fromJSON[i].ProposalStatus, fromYAML[i].ProposalStatus)
		assert.Equal(t, fromJSON[i].Tags, fromYAML[i].Tags)
	}

	item := fromYAML[0]
	assert.Equal(t, "101", item.ID)
	assert.Equal(t, models.PriorityCritical, item.Priority)
	assert.Equal(t, models.StatusInProgress, item.Status)
	assert.Equal(t, models.ProposalNeedsReview, item.ProposalStatus)
	require.NotNil(t, item.InProgressSince)
	assert.True(t, item.InProgressSince.Equal(time.Date(2011, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.CategoryNeedsReview, models.Classify(item, false))
	assert.Equal(t, models.CategoryNeedsRelease, models.Classify(fromYAML[1], true))
}

func TestParseItems_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"unknown priority", `[{"id":"1","priority":"Urgent","status":"New"}]`, models.ErrUnknownPriority},
		{"unknown status", `[{"id":"1","priority":"Low","status":"Done"}]`, models.ErrUnknownStatus},
		{"unknown proposal", `[{"id":"1","priority":"Low","status":"New","proposal_status":"Pending"}]`, models.ErrUnknownProposalStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseItems([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, items)
		})
	}

	_, err := ParseItems([]byte(`[{"priority":"Low","status":"New"}]`))
	assert.ErrorContains(t, err, "missing id")

	_, err = ParseItems([]byte(`{`))
	assert.Error(t, err)
}

func TestLoadItems_Missing(t *testing.T) {
	_, err := LoadItems(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource(t *testing.T) {
	src := NewFileSource(writeFile(t, "items.yml", itemsYAML))
	ctx := context.Background()

	items, err := src.MilestoneItems(ctx, "landscape", "1.0")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "101", items[0].ID)

	items, err = src.MilestoneItems(ctx, "", "1.0")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = src.PersonItems(ctx, "THERVE")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "102", items[0].ID)

	items, err = src.PersonItems(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileSource_ImplementsSource(t *testing.T) {
	var _ Source = (*FileSource)(nil)
}

func TestLoadItems_RejectsMissingPriority(t *testing.T) {
	_, err := LoadItems(writeFile(t, "items.yaml", "- id: \"7\"\n  status: New\n  title: No importance\n"))
	require.ErrorIs(t, err, models.ErrMissingField)

	_, err = LoadItems(writeFile(t, "items.json", `[{"id":"7","status":"New","title":"No importance"}]`))
	require.ErrorIs(t, err, models.ErrMissingField)
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/roadmap"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockSource struct {
	items []*models.WorkItem
	err   error

	project, milestone, person string
}

func (m *mockSource) MilestoneItems(_ context.Context, project, milestone string) ([]*models.WorkItem, error) {
	m.project, m.milestone = project, milestone
	return m.items, m.err
}

func (m *mockSource) PersonItems(_ context.Context, person string) ([]*models.WorkItem, error) {
	m.person = person
	return m.items, m.err
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2011, 2, 10, 14, 5, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *mockSource) {
	t.Helper()
	since := time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2011, 2, 9, 0, 0, 0, 0, time.UTC)
	ms := &mockSource{items: []*models.WorkItem{
		{ID: "3", Priority: models.PriorityLow, Status: models.StatusFixCommitted, Title: "Typo", Tags: []string{"story-login"}},
		{ID: "1", Priority: models.PriorityCritical, Status: models.StatusInProgress, Title: "Crash", Assignee: "jkakar", InProgressSince: &since},
		{ID: "2", Priority: models.PriorityHigh, Status: models.StatusInProgress, Title: "Slow", InProgressSince: &recent},
	}}

	checker := health.NewChecker()
	checker.Now = func() time.Time { return fixedNow }
	srv := NewServer(ms, checker, false, "")
	return srv, ms
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer("test"))
	assert.NotNil(t, NewServer(&mockSource{}, nil, false, "").checker)
}

func TestHandleMilestoneBoard(t *testing.T) {
	srv, ms := newTestServer(t)

	result, err := srv.handleMilestoneBoard(context.Background(), callToolReq("kanban_milestone_board", map[string]any{
		"project":   "landscape",
		"milestone": "1.0",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, "landscape", ms.project)
	assert.Equal(t, "1.0", ms.milestone)

	var v board.View
	resultJSON(t, result, &v)
	assert.Equal(t, board.KindMilestone, v.Kind)
	assert.Equal(t, 3, v.Board.Total)
	require.Len(t, v.Stories, 2)
	assert.Equal(t, "story-login", v.Stories[0].Name)

	// The in-progress column holds the most urgent item first.
	for _, c := range v.Board.Columns {
		if c.Category == "in-progress" {
			require.Len(t, c.Items, 2)
			assert.Equal(t, "1", c.Items[0].ID)
		}
		assert.NotEqual(t, "needs-testing", c.Category)
	}
}

func TestHandleMilestoneBoard_IncludeNeedsTesting(t *testing.T) {
	srv, _ := newTestServer(t)
	result, err := srv.handleMilestoneBoard(context.Background(), callToolReq("kanban_milestone_board", map[string]any{
		"project":               "landscape",
		"milestone":             "1.0",
		"include_needs_testing": true,
	}))
	require.NoError(t, err)

	var v board.View
	resultJSON(t, result, &v)
	assert.True(t, v.IncludeNeedsTesting)
}

func TestHandleMilestoneBoard_MissingArgs(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []map[string]any{
		nil,
		{"project": "landscape"},
		{"milestone": "1.0"},
	}
	for _, args := range tests {
		result, err := srv.handleMilestoneBoard(context.Background(), callToolReq("kanban_milestone_board", args))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
}

func TestHandlePersonBoard(t *testing.T) {
	srv, ms := newTestServer(t)

	result, err := srv.handlePersonBoard(context.Background(), callToolReq("kanban_person_board", map[string]any{"person": "landscape-team"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "landscape-team", ms.person)

	var v board.View
	resultJSON(t, result, &v)
	assert.Equal(t, board.KindPerson, v.Kind)
	assert.Equal(t, "landscape-team", v.Name)
}

func TestHandlePersonBoard_SourceError(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.err = errors.New("connection refused")

	result, err := srv.handlePersonBoard(context.Background(), callToolReq("kanban_person_board", map[string]any{"person": "jkakar"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "connection refused")
}

func TestHandleStaleItems(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleStaleItems(context.Background(), callToolReq("kanban_stale_items", map[string]any{"person": "jkakar"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var got []map[string]string
	resultJSON(t, result, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0]["id"])
	assert.Equal(t, "danger", got[0]["level"])
	assert.Equal(t, "in-progress", got[0]["category"])

	result, err = srv.handleStaleItems(context.Background(), callToolReq("kanban_stale_items", map[string]any{"project": "landscape"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRoadmap(t *testing.T) {
	srv, _ := newTestServer(t)
	path := filepath.Join(t.TempDir(), "roadmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`project: landscape
time_periods:
  - name: Q1
    start_date: "2011-01-01"
    end_date: "2011-03-31"
    stories:
      - name: Login
        description: Single sign-on
        track: web
        status: Queued
`), 0o644))

	result, err := srv.handleRoadmap(context.Background(), callToolReq("kanban_roadmap", map[string]any{"path": path}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var v roadmap.View
	resultJSON(t, result, &v)
	assert.Equal(t, "landscape", v.Project)
	assert.Equal(t, []string{"web"}, v.Tracks)
	require.Len(t, v.TimePeriods, 1)
	assert.Equal(t, "2011-03-31", v.TimePeriods[0].EndDate)

	srv.roadmapPath = path
	result, err = srv.handleRoadmap(context.Background(), callToolReq("kanban_roadmap", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	srv.roadmapPath = ""
	result, err = srv.handleRoadmap(context.Background(), callToolReq("kanban_roadmap", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleClassifyItems(t *testing.T) {
	srv, _ := newTestServer(t)
	items := `[
		{"id":"1","priority":"High","status":"Fix Committed","title":"a"},
		{"id":"2","priority":"High","status":"Fix Committed","title":"b","tags":["verified"]},
		{"id":"3","priority":"Low","status":"In Progress","proposal":"https://code.launchpad.net/+merge/1","proposal_status":"Needs review"}
	]`

	tests := []struct {
		name    string
		include bool
		want    []string
	}{
		{"without needs testing", false, []string{"needs-release", "needs-release", "needs-review"}},
		{"with needs testing", true, []string{"needs-testing", "needs-release", "needs-review"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleClassifyItems(context.Background(), callToolReq("kanban_classify_items", map[string]any{
				"items":                 items,
				"include_needs_testing": tt.include,
			}))
			require.NoError(t, err)
			require.False(t, result.IsError, resultText(t, result))

			var got []map[string]string
			resultJSON(t, result, &got)
			var categories []string
			for _, g := range got {
				categories = append(categories, g["category"])
			}
			assert.Equal(t, tt.want, categories)
		})
	}
}

func TestHandleClassifyItems_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, items := range []string{`not json`, `[{"id":"1","priority":"Urgent","status":"New"}]`} {
		result, err := srv.handleClassifyItems(context.Background(), callToolReq("kanban_classify_items", map[string]any{"items": items}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
	result, err := srv.handleClassifyItems(context.Background(), callToolReq("kanban_classify_items", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/roadmap"
	"github.com/joescharf/kanban/internal/store"
)

const testItemsYAML = `
- id: "101"
  project: landscape
  priority: Critical
  status: New
  title: Crash on start
  tags: [story-login]
- id: "102"
  project: landscape
  priority: High
  status: In Progress
  title: Slow query
  assignee: jkakar
- id: "103"
  project: landscape
  priority: Low
  status: Fix Committed
  title: Typo
  assignee: jkakar
`

// captureOutput sends ui output to a buffer.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	ui.Out = &out
	ui.ErrOut = &out
	return &out
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMilestoneRun_JSON(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)

	err := milestoneRun("landscape", "1.0", &boardOptions{format: "json", itemsFile: items})
	require.NoError(t, err)

	var v board.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, board.KindMilestone, v.Kind)
	assert.Equal(t, "landscape", v.Project)
	assert.Equal(t, 3, v.Board.Total)
	require.Len(t, v.Stories, 2)
	assert.Equal(t, "story-login", v.Stories[0].Name)
}

func TestMilestoneRun_HTMLToFile(t *testing.T) {
	dir := testEnv(t)
	captureOutput(t)
	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)
	target := filepath.Join(dir, "out", "board.html")

	err := milestoneRun("landscape", "1.0", &boardOptions{format: "html", itemsFile: items, outputFile: target, includeNeedsTesting: true})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>landscape 1.0</title>")
	assert.Contains(t, string(data), "Needs testing")
}

func TestMilestoneRun_DryRunWritesNothing(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)
	target := filepath.Join(dir, "board.html")
	require.NoError(t, milestoneRun("landscape", "1.0", &boardOptions{format: "html", itemsFile: items, outputFile: target}))

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, out.String(), "[DRY-RUN]")
}

func TestMilestoneRun_BadFormat(t *testing.T) {
	dir := testEnv(t)
	captureOutput(t)
	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)

	err := milestoneRun("landscape", "1.0", &boardOptions{format: "pdf", itemsFile: items})
	assert.ErrorContains(t, err, "unknown format")
}

func TestPersonRun_Markdown(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)

	require.NoError(t, personRun("JKAKAR", &boardOptions{format: "markdown", itemsFile: items}))
	assert.Contains(t, out.String(), "Slow query")
	assert.Contains(t, out.String(), "Typo")
	assert.NotContains(t, out.String(), "Crash on start")
}

func TestPersonRun_OfflineUsesSnapshot(t *testing.T) {
	testEnv(t)
	out := captureOutput(t)

	s, err := getStore()
	require.NoError(t, err)
	item, err := models.NewWorkItem("7", "landscape", models.PriorityHigh, models.StatusInProgress, "Cached bug")
	require.NoError(t, err)
	_, err = s.SaveSnapshot(context.Background(), store.KindPerson, "therve", []*models.WorkItem{item})
	require.NoError(t, err)

	require.NoError(t, personRun("therve", &boardOptions{format: "json", offline: true}))
	assert.Contains(t, out.String(), "Cached bug")
	assert.Contains(t, out.String(), "Using items fetched")
}

func TestPersonRun_OfflineWithoutSnapshot(t *testing.T) {
	testEnv(t)
	captureOutput(t)

	err := personRun("nobody", &boardOptions{format: "json", offline: true})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewSource_OfflineWithItems(t *testing.T) {
	testEnv(t)
	_, err := newSource("items.yaml", true)
	assert.Error(t, err)
}

func TestRoadmapRun(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	path := writeTestFile(t, dir, "roadmap.json", `{"project":"landscape","time_periods":[
		{"name":"Q1","start_date":"2011-01-01","end_date":"2011-03-31","stories":[
			{"name":"Login","description":"Single sign-on","track":"web","status":"Queued"}]}]}`)

	require.NoError(t, roadmapRun(path, &boardOptions{format: "json"}))
	var v roadmap.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, "landscape", v.Project)
	assert.Equal(t, []string{"web"}, v.Tracks)

	out.Reset()
	require.NoError(t, roadmapRun(path, &boardOptions{format: "html"}))
	assert.Contains(t, out.String(), "Login")
}

func TestRoadmapRun_Invalid(t *testing.T) {
	dir := testEnv(t)
	captureOutput(t)
	path := writeTestFile(t, dir, "roadmap.json", `{"time_periods":[]}`)

	err := roadmapRun(path, &boardOptions{format: "json"})
	assert.ErrorIs(t, err, roadmap.ErrMissingField)
}

func TestClassifyRun(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	items := writeTestFile(t, dir, "items.yaml", testItemsYAML)

	require.NoError(t, classifyRun(items, false))
	assert.Contains(t, out.String(), "Crash on start")
	assert.Contains(t, out.String(), "queued")
	assert.Contains(t, out.String(), "3 items: queued 1, in-progress 1, needs-release 1")

	out.Reset()
	require.NoError(t, classifyRun(items, true))
	assert.Contains(t, out.String(), "needs-testing 1")
}

func TestClassifyRun_Empty(t *testing.T) {
	dir := testEnv(t)
	out := captureOutput(t)
	items := writeTestFile(t, dir, "items.json", `[]`)

	require.NoError(t, classifyRun(items, false))
	assert.Contains(t, out.String(), "No work items found")
}

func TestSnapshotsRun(t *testing.T) {
	testEnv(t)
	out := captureOutput(t)

	require.NoError(t, snapshotsRun("", 10))
	assert.Contains(t, out.String(), "No snapshots found")

	s, err := getStore()
	require.NoError(t, err)
	_, err = s.SaveSnapshot(context.Background(), store.KindMilestone, store.MilestoneKey("landscape", "1.0"), nil)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, snapshotsRun("", 10))
	assert.Contains(t, out.String(), "landscape/1.0")
}

func TestNewChecker_UsesConfig(t *testing.T) {
	testEnv(t)
	viper.Set("warn.in_progress_days", 5)
	viper.Set("danger.review_days", 9)

	c := newChecker()
	assert.Equal(t, 5, c.Warn.InProgress)
	assert.Equal(t, 1, c.Warn.Review)
	assert.Equal(t, 9, c.Danger.Review)
}

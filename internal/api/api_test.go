package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/render"
	"github.com/joescharf/kanban/internal/roadmap"
	"github.com/joescharf/kanban/internal/store"
	"github.com/joescharf/kanban/internal/tracker"
)

type fakeSource struct {
	items []*models.WorkItem
	err   error
}

func (f *fakeSource) MilestoneItems(context.Context, string, string) ([]*models.WorkItem, error) {
	return f.items, f.err
}

func (f *fakeSource) PersonItems(context.Context, string) ([]*models.WorkItem, error) {
	return f.items, f.err
}

var fixedNow = time.Date(2011, 2, 10, 14, 5, 0, 0, time.UTC)

func testItems() []*models.WorkItem {
	return []*models.WorkItem{
		{ID: "103", Project: "landscape", Priority: models.PriorityLow, Status: models.StatusFixCommitted, Title: "Typo"},
		{ID: "101", Project: "landscape", Priority: models.PriorityCritical, Status: models.StatusNew, Title: "Crash on start", Tags: []string{"story-login"}},
		{ID: "102", Project: "landscape", Priority: models.PriorityHigh, Status: models.StatusInProgress, Title: "Slow query", Assignee: "jkakar"},
	}
}

func setupTestServer(t *testing.T, src tracker.Source) *Server {
	t.Helper()
	checker := health.NewChecker()
	checker.Now = func() time.Time { return fixedNow }
	r := render.New(checker)
	r.Now = func() time.Time { return fixedNow }
	return NewServer(src, r, false)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMilestoneBoard_JSON(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{items: testItems()})
	w := get(t, srv.Router(), "/api/v1/milestones/landscape/1.0")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var v board.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, board.KindMilestone, v.Kind)
	assert.Equal(t, "1.0", v.Name)
	assert.Equal(t, "landscape", v.Project)
	assert.Equal(t, 3, v.Board.Total)
	require.Len(t, v.Stories, 2)
	assert.Equal(t, "story-login", v.Stories[0].Name)
	assert.True(t, v.Stories[1].Ungrouped)

	byCategory := map[string][]string{}
	for _, c := range v.Board.Columns {
		for _, item := range c.Items {
			byCategory[c.Category] = append(byCategory[c.Category], item.ID)
		}
	}
	assert.Equal(t, []string{"101"}, byCategory["queued"])
	assert.Equal(t, []string{"102"}, byCategory["in-progress"])
	assert.Equal(t, []string{"103"}, byCategory["needs-release"])
}

func TestMilestoneBoard_IncludeNeedsTesting(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{items: testItems()})
	router := srv.Router()

	w := get(t, router, "/api/v1/milestones/landscape/1.0?include_needs_testing=true")
	require.Equal(t, http.StatusOK, w.Code)
	var v board.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.True(t, v.IncludeNeedsTesting)

	var categories []string
	for _, c := range v.Board.Columns {
		categories = append(categories, c.Category)
	}
	assert.Contains(t, categories, "needs-testing")

	w = get(t, router, "/api/v1/milestones/landscape/1.0?include_needs_testing=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoard_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		want   int
	}{
		{"milestone not found", tracker.ErrNotFound, "/api/v1/milestones/landscape/9.9", http.StatusNotFound},
		{"person not found", tracker.ErrNotFound, "/api/v1/people/nobody", http.StatusNotFound},
		{"no snapshot", store.ErrNotFound, "/api/v1/people/jkakar", http.StatusNotFound},
		{"tracker down", errors.New("connection refused"), "/api/v1/people/jkakar", http.StatusBadGateway},
		{"html page", tracker.ErrNotFound, "/people/nobody", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestServer(t, &fakeSource{err: tt.err})
			w := get(t, srv.Router(), tt.target)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPersonBoard_JSON(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{items: testItems()})
	w := get(t, srv.Router(), "/api/v1/people/jkakar")
	require.Equal(t, http.StatusOK, w.Code)

	var v board.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, board.KindPerson, v.Kind)
	assert.Equal(t, "jkakar", v.Name)
	assert.Empty(t, v.Project)
}

func TestMilestonePage_HTML(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{items: testItems()})
	w := get(t, srv.Router(), "/milestones/landscape/1.0")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<title>landscape 1.0</title>")
	assert.Contains(t, w.Body.String(), "Crash on start")
	assert.Contains(t, w.Body.String(), "Generated Thu 10 Feb at 14:05 UTC")
}

func TestRoadmap(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{})
	router := srv.Router()

	w := get(t, router, "/api/v1/roadmap")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = get(t, router, "/roadmap")
	assert.Equal(t, http.StatusNotFound, w.Code)

	p, err := roadmap.Load([]byte(`{"project":"landscape","time_periods":[{"name":"Q1","start_date":"2011-01-01","end_date":"2011-03-31","stories":[{"name":"Login","description":"d","track":"web","status":"Queued"}]}]}`))
	require.NoError(t, err)
	srv.SetRoadmap(p)

	w = get(t, router, "/api/v1/roadmap")
	require.Equal(t, http.StatusOK, w.Code)
	var v roadmap.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "landscape", v.Project)
	assert.Equal(t, []string{"web"}, v.Tracks)

	w = get(t, router, "/roadmap")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Login")
}

func TestWatchRoadmap(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{})
	ch := make(chan roadmap.Reload)
	w := &roadmap.Watcher{Path: "roadmap.json", Reloads: ch}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.WatchRoadmap(ctx, w)
		close(done)
	}()

	ch <- roadmap.Reload{Err: errors.New("bad json")}
	ch <- roadmap.Reload{Plan: roadmap.NewPlan("first")}
	ch <- roadmap.Reload{Err: errors.New("bad again")}
	cancel()
	<-done

	p, err := srv.roadmap()
	require.NotNil(t, p)
	assert.Equal(t, "first", p.Project, "a failed reload keeps the last good roadmap")
	assert.EqualError(t, err, "bad again")
}

func TestListSnapshots(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{})
	router := srv.Router()

	w := get(t, router, "/api/v1/snapshots")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	_, err = s.SaveSnapshot(context.Background(), store.KindPerson, "jkakar", testItems())
	require.NoError(t, err)
	srv.SetStore(s)

	w = get(t, router, "/api/v1/snapshots?kind=person")
	require.Equal(t, http.StatusOK, w.Code)
	var infos []store.SnapshotInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "jkakar", infos[0].Key)
	assert.Equal(t, 3, infos[0].ItemCount)

	w = get(t, router, "/api/v1/snapshots?limit=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{})
	body := `[
		{"id":"1","priority":"High","status":"Fix Committed","title":"a"},
		{"id":"2","priority":"Low","status":"In Progress","title":"b","in_progress_since":"2011-01-03T00:00:00Z"}
	]`
	req := httptest.NewRequest("POST", "/api/v1/classify?include_needs_testing=true", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "needs-testing", got[0]["category"])
	assert.Equal(t, "ok", got[0]["level"])
	assert.Equal(t, "in-progress", got[1]["category"])
	assert.Equal(t, "danger", got[1]["level"])

	for _, bad := range []string{
		`[{"id":"1","priority":"Urgent","status":"New"}]`,
		`[{"id":"1","status":"New"}]`,
	} {
		req = httptest.NewRequest("POST", "/api/v1/classify", bytes.NewBufferString(bad))
		w = httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestStaticAndCORS(t *testing.T) {
	srv := setupTestServer(t, &fakeSource{})
	router := srv.Router()

	w := get(t, router, "/static/kanban.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest("OPTIONS", "/api/v1/roadmap", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

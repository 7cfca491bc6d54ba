package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/render"
	"github.com/joescharf/kanban/internal/roadmap"
	"github.com/joescharf/kanban/internal/store"
	"github.com/joescharf/kanban/internal/tracker"
	"github.com/joescharf/kanban/internal/ui"
)

// Server provides the JSON API and the HTML board pages.
type Server struct {
	source              tracker.Source
	renderer            *render.Renderer
	includeNeedsTesting bool

	// snapshots is optional; without it /api/v1/snapshots answers 404.
	snapshots store.Store

	mu      sync.RWMutex
	plan    *roadmap.Plan
	planErr error
}

// NewServer creates a new API server. Boards are built fresh for every
// request from items fetched through src.
func NewServer(src tracker.Source, r *render.Renderer, includeNeedsTesting bool) *Server {
	if r == nil {
		r = render.New(nil)
	}
	return &Server{
		source:              src,
		renderer:            r,
		includeNeedsTesting: includeNeedsTesting,
	}
}

// SetStore enables the snapshot listing endpoint.
func (s *Server) SetStore(st store.Store) {
	s.snapshots = st
}

// SetRoadmap replaces the roadmap served at /roadmap.
func (s *Server) SetRoadmap(p *roadmap.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = p
	s.planErr = nil
}

// WatchRoadmap applies reloads from w until ctx is done or w stops. A
// roadmap that fails to parse leaves the last good one in place.
func (s *Server) WatchRoadmap(ctx context.Context, w *roadmap.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-w.Reloads:
			if !ok {
				return
			}
			if r.Err != nil {
				slog.Warn("roadmap reload failed", "path", w.Path, "error", r.Err)
				s.mu.Lock()
				s.planErr = r.Err
				s.mu.Unlock()
				continue
			}
			slog.Info("roadmap reloaded", "path", w.Path, "time_spans", len(r.Plan.TimeSpans))
			s.SetRoadmap(r.Plan)
		}
	}
}

func (s *Server) roadmap() (*roadmap.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan, s.planErr
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/milestones/{project}/{milestone}", s.milestoneBoard)
	mux.HandleFunc("GET /api/v1/people/{name}", s.personBoard)
	mux.HandleFunc("GET /api/v1/roadmap", s.roadmapView)
	mux.HandleFunc("GET /api/v1/snapshots", s.listSnapshots)
	mux.HandleFunc("POST /api/v1/classify", s.classify)

	mux.HandleFunc("GET /milestones/{project}/{milestone}", s.milestonePage)
	mux.HandleFunc("GET /people/{name}", s.personPage)
	mux.HandleFunc("GET /roadmap", s.roadmapPage)

	if static, err := ui.Handler(); err != nil {
		slog.Error("static assets unavailable", "error", err)
	} else {
		mux.Handle("GET /static/", http.StripPrefix("/static/", static))
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps lookup failures to 404 and everything else to 502,
// since the tracker is the usual culprit.
func errorStatus(err error) int {
	if errors.Is(err, tracker.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// includeTesting reads the include_needs_testing query parameter,
// falling back to the server default.
func (s *Server) includeTesting(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("include_needs_testing")
	if v == "" {
		return s.includeNeedsTesting, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid include_needs_testing: %q", v)
	}
	return b, nil
}

// --- Boards ---

func (s *Server) buildMilestone(r *http.Request) (*board.Board, int, error) {
	include, err := s.includeTesting(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	project, milestone := r.PathValue("project"), r.PathValue("milestone")
	items, err := s.source.MilestoneItems(r.Context(), project, milestone)
	if err != nil {
		slog.Warn("milestone board failed", "project", project, "milestone", milestone, "error", err)
		return nil, errorStatus(err), err
	}
	b := board.NewMilestoneBoard(project, milestone, include)
	b.Fill(items)
	return b, http.StatusOK, nil
}

func (s *Server) buildPerson(r *http.Request) (*board.Board, int, error) {
	include, err := s.includeTesting(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	name := r.PathValue("name")
	items, err := s.source.PersonItems(r.Context(), name)
	if err != nil {
		slog.Warn("person board failed", "person", name, "error", err)
		return nil, errorStatus(err), err
	}
	b := board.NewPersonBoard(name, include)
	b.Fill(items)
	return b, http.StatusOK, nil
}

func (s *Server) milestoneBoard(w http.ResponseWriter, r *http.Request) {
	b, status, err := s.buildMilestone(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, board.NewView(b))
}

func (s *Server) personBoard(w http.ResponseWriter, r *http.Request) {
	b, status, err := s.buildPerson(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, board.NewView(b))
}

func (s *Server) milestonePage(w http.ResponseWriter, r *http.Request) {
	b, status, err := s.buildMilestone(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	s.writeBoardHTML(w, b)
}

func (s *Server) personPage(w http.ResponseWriter, r *http.Request) {
	b, status, err := s.buildPerson(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	s.writeBoardHTML(w, b)
}

func (s *Server) writeBoardHTML(w http.ResponseWriter, b *board.Board) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.BoardHTML(w, b); err != nil {
		slog.Error("render board", "board", b.Name(), "error", err)
	}
}

// --- Roadmap ---

func (s *Server) roadmapView(w http.ResponseWriter, r *http.Request) {
	p, err := s.roadmap()
	if p == nil {
		msg := "no roadmap loaded"
		if err != nil {
			msg = err.Error()
		}
		writeError(w, http.StatusNotFound, msg)
		return
	}
	writeJSON(w, http.StatusOK, roadmap.NewView(p))
}

func (s *Server) roadmapPage(w http.ResponseWriter, r *http.Request) {
	p, _ := s.roadmap()
	if p == nil {
		http.Error(w, "no roadmap loaded", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RoadmapHTML(w, p); err != nil {
		slog.Error("render roadmap", "project", p.Project, "error", err)
	}
}

// --- Snapshots ---

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "snapshot store not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	infos, err := s.snapshots.ListSnapshots(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if infos == nil {
		infos = []store.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// --- Classification ---

type classifiedItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Category models.Category `json:"category"`
	Level    health.Level    `json:"level"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	include, err := s.includeTesting(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var items []*models.WorkItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	checker := s.renderer.Checker
	if checker == nil {
		checker = health.NewChecker()
	}
	out := make([]classifiedItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := item.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out = append(out, classifiedItem{
			ID:       item.ID,
			Title:    item.Title,
			Category: models.Classify(item, include),
			Level:    checker.Level(item),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

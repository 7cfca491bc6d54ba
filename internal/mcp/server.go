package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/roadmap"
	"github.com/joescharf/kanban/internal/tracker"
)

// Server exposes boards, roadmaps and classification as MCP tools.
type Server struct {
	source              tracker.Source
	checker             *health.Checker
	includeNeedsTesting bool
	// roadmapPath is used when the roadmap tool is called without a path.
	roadmapPath string
}

// NewServer creates the MCP server wrapper. checker may be nil.
func NewServer(src tracker.Source, checker *health.Checker, includeNeedsTesting bool, roadmapPath string) *Server {
	if checker == nil {
		checker = health.NewChecker()
	}
	return &Server{
		source:              src,
		checker:             checker,
		includeNeedsTesting: includeNeedsTesting,
		roadmapPath:         roadmapPath,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("kanban", version, server.WithToolCapabilities(true))

	srv.AddTool(s.milestoneBoardTool())
	srv.AddTool(s.personBoardTool())
	srv.AddTool(s.staleItemsTool())
	srv.AddTool(s.roadmapTool())
	srv.AddTool(s.classifyItemsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, version string) error {
	stdioServer := server.NewStdioServer(s.MCPServer(version))
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Boards
// ---------------------------------------------------------------------------

// kanban_milestone_board
func (s *Server) milestoneBoardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kanban_milestone_board",
		mcp.WithDescription("Build the kanban board for a project milestone. Returns JSON with one column per category (queued, in-progress, needs-review, needs-testing, needs-release, released) for the whole milestone and for each story."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project or project group name")),
		mcp.WithString("milestone", mcp.Required(), mcp.Description("Milestone name")),
		mcp.WithBoolean("include_needs_testing", mcp.Description("Show a separate needs-testing column")),
	)
	return tool, s.handleMilestoneBoard
}

func (s *Server) handleMilestoneBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	milestone, err := request.RequireString("milestone")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: milestone"), nil
	}

	items, err := s.source.MilestoneItems(ctx, project, milestone)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch milestone %s: %v", milestone, err)), nil
	}
	b := board.NewMilestoneBoard(project, milestone, request.GetBool("include_needs_testing", s.includeNeedsTesting))
	b.Fill(items)
	return jsonResult(board.NewView(b))
}

// kanban_person_board
func (s *Server) personBoardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kanban_person_board",
		mcp.WithDescription("Build the kanban board of the bugs assigned to a person or to any member of a team."),
		mcp.WithString("person", mcp.Required(), mcp.Description("Person or team name")),
		mcp.WithBoolean("include_needs_testing", mcp.Description("Show a separate needs-testing column")),
	)
	return tool, s.handlePersonBoard
}

func (s *Server) handlePersonBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	person, err := request.RequireString("person")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: person"), nil
	}

	items, err := s.source.PersonItems(ctx, person)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch bugs for %s: %v", person, err)), nil
	}
	b := board.NewPersonBoard(person, request.GetBool("include_needs_testing", s.includeNeedsTesting))
	b.Fill(items)
	return jsonResult(board.NewView(b))
}

// kanban_stale_items
func (s *Server) staleItemsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kanban_stale_items",
		mcp.WithDescription("List the bugs of a milestone or person that have been in progress or in review for too long, graded warn or danger."),
		mcp.WithString("project", mcp.Description("Project name, with milestone")),
		mcp.WithString("milestone", mcp.Description("Milestone name, with project")),
		mcp.WithString("person", mcp.Description("Person or team name, instead of project and milestone")),
	)
	return tool, s.handleStaleItems
}

type staleItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Assignee string          `json:"assignee,omitempty"`
	Category models.Category `json:"category"`
	Level    health.Level    `json:"level"`
}

func (s *Server) handleStaleItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	person := request.GetString("person", "")
	project := request.GetString("project", "")
	milestone := request.GetString("milestone", "")

	var (
		items []*models.WorkItem
		err   error
	)
	switch {
	case person != "":
		items, err = s.source.PersonItems(ctx, person)
	case project != "" && milestone != "":
		items, err = s.source.MilestoneItems(ctx, project, milestone)
	default:
		return mcp.NewToolResultError("either person or both project and milestone are required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch bugs: %v", err)), nil
	}

	models.SortWorkItems(items)
	out := []staleItem{}
	for _, item := range items {
		level := s.checker.Level(item)
		if level == health.LevelOK {
			continue
		}
		out = append(out, staleItem{
			ID:       item.ID,
			Title:    item.Title,
			Assignee: item.Assignee,
			Category: models.Classify(item, s.includeNeedsTesting),
			Level:    level,
		})
	}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// Roadmap
// ---------------------------------------------------------------------------

// kanban_roadmap
func (s *Server) roadmapTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kanban_roadmap",
		mcp.WithDescription("Load a roadmap file (JSON or YAML) and return its time periods, stories and the sorted list of tracks."),
		mcp.WithString("path", mcp.Description("Roadmap file; defaults to the configured roadmap")),
	)
	return tool, s.handleRoadmap
}

func (s *Server) handleRoadmap(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", s.roadmapPath)
	if path == "" {
		return mcp.NewToolResultError("no roadmap path given and none configured"), nil
	}
	p, err := roadmap.LoadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load roadmap: %v", err)), nil
	}
	return jsonResult(roadmap.NewView(p))
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// kanban_classify_items
func (s *Server) classifyItemsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kanban_classify_items",
		mcp.WithDescription(`Classify work items into board categories. Pass a JSON array of items with id, priority (Critical, High, Medium, Low, Wishlist, Undecided), status (New, Incomplete, Expired, Confirmed, Triaged, In Progress, Fix Committed, Fix Released), and optionally proposal, proposal_status and tags.`),
		mcp.WithString("items", mcp.Required(), mcp.Description("JSON array of work items")),
		mcp.WithBoolean("include_needs_testing", mcp.Description("Report needs-testing separately from needs-release")),
	)
	return tool, s.handleClassifyItems
}

func (s *Server) handleClassifyItems(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("items")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: items"), nil
	}
	var items []*models.WorkItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err)), nil
	}

	include := request.GetBool("include_needs_testing", s.includeNeedsTesting)
	type classified struct {
		ID       string          `json:"id"`
		Category models.Category `json:"category"`
		Title    string          `json:"title"`
	}
	out := make([]classified, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := item.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out = append(out, classified{ID: item.ID, Category: models.Classify(item, include), Title: item.Title})
	}
	return jsonResult(out)
}

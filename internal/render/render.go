package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/roadmap"
)

// Format selects an output representation.
type Format string

const (
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatHTML, FormatText, FormatJSON, FormatMarkdown}

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts a format name, case-insensitively. "md" is accepted
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q (want one of html, text, json, markdown)", ErrUnknownFormat, s)
}

// Renderer writes boards and roadmaps. The zero value uses the default
// staleness thresholds and the wall clock.
type Renderer struct {
	Checker *health.Checker
	// Width is the terminal width used by text output. Zero means 120.
	Width int
	Now   func() time.Time
}

// New returns a renderer grading items with checker.
func New(checker *health.Checker) *Renderer {
	return &Renderer{Checker: checker}
}

// Board writes b in format f.
func (r *Renderer) Board(w io.Writer, b *board.Board, f Format) error {
	switch f {
	case FormatHTML:
		return r.BoardHTML(w, b)
	case FormatText:
		return r.BoardText(w, b)
	case FormatJSON:
		return JSON(w, board.NewView(b))
	case FormatMarkdown:
		return r.BoardMarkdown(w, b)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Roadmap writes p in format f.
func (r *Renderer) Roadmap(w io.Writer, p *roadmap.Plan, f Format) error {
	switch f {
	case FormatHTML:
		return r.RoadmapHTML(w, p)
	case FormatText:
		return r.RoadmapText(w, p)
	case FormatJSON:
		return JSON(w, roadmap.NewView(p))
	case FormatMarkdown:
		return r.RoadmapMarkdown(w, p)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var defaultChecker = health.NewChecker()

func (r *Renderer) checker() *health.Checker {
	if r.Checker == nil {
		return defaultChecker
	}
	return r.Checker
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Renderer) width() int {
	if r.Width <= 0 {
		return 120
	}
	return r.Width
}

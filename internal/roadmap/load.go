package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the layout of start_date and end_date in roadmap documents.
const DateLayout = "2006-01-02"

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidDate  = errors.New("invalid date")
)

// ParseError reports the field of a roadmap document that could not be
// loaded. Field is empty when the document itself is malformed.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("roadmap: %v", e.Err)
	}
	return fmt.Sprintf("roadmap: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// document mirrors the roadmap file format. Pointers distinguish missing
// keys from empty values.
type document struct {
	Project     *string      `json:"project" yaml:"project"`
	TimePeriods *[]periodDoc `json:"time_periods" yaml:"time_periods"`
}

type periodDoc struct {
	Name      *string     `json:"name" yaml:"name"`
	StartDate *string     `json:"start_date" yaml:"start_date"`
	EndDate   *string     `json:"end_date" yaml:"end_date"`
	Stories   *[]storyDoc `json:"stories" yaml:"stories"`
}

type storyDoc struct {
	Name        *string  `json:"name" yaml:"name"`
	Description *string  `json:"description" yaml:"description"`
	Track       *string  `json:"track" yaml:"track"`
	Status      *string  `json:"status" yaml:"status"`
	Link        string   `json:"link" yaml:"link"`
	Assignees   []string `json:"assignees" yaml:"assignees"`
}

// Load builds a Plan from a JSON roadmap document. Time spans and items keep
// their document order. Nothing is returned on failure.
func Load(data []byte) (*Plan, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc.plan()
}

// LoadYAML builds a Plan from the YAML form of a roadmap document.
func LoadYAML(data []byte) (*Plan, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc.plan()
}

// LoadFile reads a roadmap from path, parsing .yaml and .yml files as YAML
// and everything else as JSON.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roadmap: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return Load(data)
	}
}

func (d *document) plan() (*Plan, error) {
	if d.Project == nil {
		return nil, missing("project")
	}
	if d.TimePeriods == nil {
		return nil, missing("time_periods")
	}

	plan := NewPlan(*d.Project)
	for i, p := range *d.TimePeriods {
		field := fmt.Sprintf("time_periods[%d]", i)
		span, err := p.span(field)
		if err != nil {
			return nil, err
		}
		plan.Add(span)
	}
	return plan, nil
}

func (p *periodDoc) span(field string) (*TimeSpan, error) {
	if p.Name == nil {
		return nil, missing(field + ".name")
	}
	start, err := parseDate(field+".start_date", p.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(field+".end_date", p.EndDate)
	if err != nil {
		return nil, err
	}
	if p.Stories == nil {
		return nil, missing(field + ".stories")
	}

	span := NewTimeSpan(*p.Name, start, end)
	for j, s := range *p.Stories {
		item, err := s.item(fmt.Sprintf("%s.stories[%d]", field, j))
		if err != nil {
			return nil, err
		}
		span.Add(item)
	}
	return span, nil
}

func (s *storyDoc) item(field string) (*PlanItem, error) {
	required := []struct {
		key   string
		value *string
	}{
		{"name", s.Name},
		{"description", s.Description},
		{"track", s.Track},
		{"status", s.Status},
	}
	for _, r := range required {
		if r.value == nil {
			return nil, missing(field + "." + r.key)
		}
	}
	return NewPlanItem(*s.Name, *s.Description, *s.Track, PlanStatus(*s.Status), s.Link, s.Assignees), nil
}

func parseDate(field string, value *string) (time.Time, error) {
	if value == nil {
		return time.Time{}, missing(field)
	}
	t, err := time.Parse(DateLayout, *value)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Err: fmt.Errorf("%w %q", ErrInvalidDate, *value)}
	}
	return t, nil
}

func missing(field string) error {
	return &ParseError{Field: field, Err: ErrMissingField}
}

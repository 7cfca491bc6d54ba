// Package tracker defines where work items come from.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/kanban/internal/models"
)

// ErrNotFound is returned when a project, milestone or person does not
// exist in the tracker.
var ErrNotFound = errors.New("not found")

// Source fetches work items. Implementations resolve linked branches and
// proposals and drop irrelevant items before returning them.
type Source interface {
	MilestoneItems(ctx context.Context, project, milestone string) ([]*models.WorkItem, error)
	PersonItems(ctx context.Context, person string) ([]*models.WorkItem, error)
}

// FileSource serves work items exported to a YAML or JSON file. The file is
// taken to hold a single milestone, so MilestoneItems filters by project
// only.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path on every call.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) MilestoneItems(_ context.Context, project, _ string) ([]*models.WorkItem, error) {
	items, err := LoadItems(f.Path)
	if err != nil {
		return nil, err
	}
	var out []*models.WorkItem
	for _, item := range items {
		if project == "" || item.Project == "" || strings.EqualFold(item.Project, project) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *FileSource) PersonItems(_ context.Context, person string) ([]*models.WorkItem, error) {
	items, err := LoadItems(f.Path)
	if err != nil {
		return nil, err
	}
	var out []*models.WorkItem
	for _, item := range items {
		if strings.EqualFold(item.Assignee, person) {
			out = append(out, item)
		}
	}
	return out, nil
}

// LoadItems reads a list of work items from path. Files ending in .yaml or
// .yml are parsed as YAML and everything else as JSON.
func LoadItems(path string) ([]*models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseItemsYAML(data)
	default:
		return ParseItems(data)
	}
}

// ParseItems decodes a JSON array of work items.
func ParseItems(data []byte) ([]*models.WorkItem, error) {
	var items []*models.WorkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// ParseItemsYAML decodes a YAML list of work items.
func ParseItemsYAML(data []byte) ([]*models.WorkItem, error) {
	var items []*models.WorkItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func validate(items []*models.WorkItem) error {
	for i, item := range items {
		if item == nil {
			return fmt.Errorf("parse items: entry %d is empty", i)
		}
		if item.ID == "" {
			return fmt.Errorf("parse items: entry %d: missing id", i)
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("parse items: %w", err)
		}
	}
	return nil
}

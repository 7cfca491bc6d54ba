package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoryTagPrefix marks a tag as naming the story a work item belongs to.
const StoryTagPrefix = "story-"

// VerifiedTag marks a committed fix as tested and ready to release.
const VerifiedTag = "verified"

// WorkItem is a bug tracked in the issue tracker, together with the branch
// and merge proposal linked to it. Its category is always derived from its
// current fields and never stored.
type WorkItem struct {
	ID              string         `json:"id" yaml:"id"`
	Project         string         `json:"project" yaml:"project"`
	Priority        Priority       `json:"priority" yaml:"priority"`
	Status          Status         `json:"status" yaml:"status"`
	Title           string         `json:"title" yaml:"title"`
	Assignee        string         `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	InProgressSince *time.Time     `json:"in_progress_since,omitempty" yaml:"in_progress_since,omitempty"`
	Branch          string         `json:"branch,omitempty" yaml:"branch,omitempty"`
	Proposal        string         `json:"proposal,omitempty" yaml:"proposal,omitempty"`
	ProposalStatus  ProposalStatus `json:"proposal_status,omitempty" yaml:"proposal_status,omitempty"`
	ProposalCreated *time.Time     `json:"proposal_created,omitempty" yaml:"proposal_created,omitempty"`
	Tags            []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// requiredKeys have no usable zero value and must be present when decoding.
var requiredKeys = []string{"priority", "status"}

func checkRequired(id string, has func(key string) bool) error {
	for _, key := range requiredKeys {
		if !has(key) {
			return fmt.Errorf("work item %s: %w: %s", id, ErrMissingField, key)
		}
	}
	return nil
}

func (w *WorkItem) UnmarshalJSON(data []byte) error {
	type plain WorkItem
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if err := json.Unmarshal(data, (*plain)(w)); err != nil {
		return err
	}
	return checkRequired(w.ID, func(key string) bool {
		_, ok := fields[key]
		return ok
	})
}

func (w *WorkItem) UnmarshalYAML(node *yaml.Node) error {
	type plain WorkItem
	if err := node.Decode((*plain)(w)); err != nil {
		return err
	}
	return checkRequired(w.ID, func(key string) bool {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return true
			}
		}
		return false
	})
}

// NewWorkItem returns a work item with the required fields set, rejecting
// priorities and statuses outside the declared enums.
func NewWorkItem(id, project string, priority Priority, status Status, title string) (*WorkItem, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("work item %s: %w: %d", id, ErrUnknownPriority, int(priority))
	}
	if !status.Valid() {
		return nil, fmt.Errorf("work item %s: %w: %d", id, ErrUnknownStatus, int(status))
	}
	return &WorkItem{
		ID:       id,
		Project:  project,
		Priority: priority,
		Status:   status,
		Title:    title,
	}, nil
}

// Validate checks that the enum fields hold declared values.
func (w *WorkItem) Validate() error {
	if !w.Priority.Valid() {
		return fmt.Errorf("work item %s: %w: %d", w.ID, ErrUnknownPriority, int(w.Priority))
	}
	if !w.Status.Valid() {
		return fmt.Errorf("work item %s: %w: %d", w.ID, ErrUnknownStatus, int(w.Status))
	}
	if !w.ProposalStatus.Valid() {
		return fmt.Errorf("work item %s: %w: %d", w.ID, ErrUnknownProposalStatus, int(w.ProposalStatus))
	}
	return nil
}

// HasProposal reports whether a merge proposal is linked.
func (w *WorkItem) HasProposal() bool {
	return w.Proposal != ""
}

// HasTag reports whether tag is present.
func (w *WorkItem) HasTag(tag string) bool {
	return slices.Contains(w.Tags, tag)
}

// Verified reports whether the item carries the verified tag.
func (w *WorkItem) Verified() bool {
	return w.HasTag(VerifiedTag)
}

// StoryTags returns the distinct tags naming a story, sorted.
func (w *WorkItem) StoryTags() []string {
	var names []string
	for _, tag := range w.Tags {
		if strings.HasPrefix(tag, StoryTagPrefix) && !slices.Contains(names, tag) {
			names = append(names, tag)
		}
	}
	slices.Sort(names)
	return names
}

// Queued reports whether the item is waiting for someone to start on it.
func (w *WorkItem) Queued() bool {
	switch w.Status {
	case StatusInProgress, StatusFixCommitted, StatusFixReleased:
		return false
	}
	return true
}

// InProgress reports whether a fix is being developed. A linked proposal
// takes the item out of this category unless the proposal itself is still
// a work in progress.
func (w *WorkItem) InProgress() bool {
	if w.Status != StatusInProgress {
		return false
	}
	return !w.HasProposal() || w.ProposalStatus == ProposalWorkInProgress
}

// NeedsReview reports whether the linked proposal is waiting for review.
func (w *WorkItem) NeedsReview() bool {
	return w.HasProposal() && w.ProposalStatus == ProposalNeedsReview
}

// NeedsTesting reports whether a landed or approved fix still has to be
// verified. Without a proposal the item must be Fix Committed; with one, the
// proposal must be approved or merged.
func (w *WorkItem) NeedsTesting() bool {
	if w.Verified() {
		return false
	}
	if w.Status == StatusFixCommitted && !w.HasProposal() {
		return true
	}
	if w.Status != StatusInProgress && w.Status != StatusFixCommitted {
		return false
	}
	return w.HasProposal() &&
		(w.ProposalStatus == ProposalApproved || w.ProposalStatus == ProposalMerged)
}

// NeedsRelease reports whether a committed fix has been verified.
func (w *WorkItem) NeedsRelease() bool {
	return w.Status == StatusFixCommitted && w.Verified()
}

// Released reports whether the fix has shipped.
func (w *WorkItem) Released() bool {
	return w.Status == StatusFixReleased
}

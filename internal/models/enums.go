package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownPriority       = errors.New("unknown priority")
	ErrUnknownStatus         = errors.New("unknown status")
	ErrUnknownProposalStatus = errors.New("unknown proposal status")
	ErrMissingField          = errors.New("missing field")
)

// Priority is the importance of a work item. Lower values are more urgent.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityWishlist
	PriorityUndecided
)

var priorityNames = [...]string{
	PriorityCritical:  "Critical",
	PriorityHigh:      "High",
	PriorityMedium:    "Medium",
	PriorityLow:       "Low",
	PriorityWishlist:  "Wishlist",
	PriorityUndecided: "Undecided",
}

// Priorities lists every priority, most urgent first.
var Priorities = []Priority{
	PriorityCritical, PriorityHigh, PriorityMedium,
	PriorityLow, PriorityWishlist, PriorityUndecided,
}

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the declared priorities.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityUndecided
}

// ParsePriority converts a tracker importance string into a Priority.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Status is the lifecycle state of a work item in the tracker.
type Status int

const (
	StatusNew Status = iota
	StatusIncomplete
	StatusOpinion
	StatusInvalid
	StatusWontFix
	StatusExpired
	StatusConfirmed
	StatusTriaged
	StatusInProgress
	StatusFixCommitted
	StatusFixReleased
)

var statusNames = [...]string{
	StatusNew:          "New",
	StatusIncomplete:   "Incomplete",
	StatusOpinion:      "Opinion",
	StatusInvalid:      "Invalid",
	StatusWontFix:      "Won't Fix",
	StatusExpired:      "Expired",
	StatusConfirmed:    "Confirmed",
	StatusTriaged:      "Triaged",
	StatusInProgress:   "In Progress",
	StatusFixCommitted: "Fix Committed",
	StatusFixReleased:  "Fix Released",
}

// RelevantStatuses are the statuses fetched from the tracker when building a board.
var RelevantStatuses = []Status{
	StatusNew, StatusIncomplete, StatusExpired, StatusConfirmed, StatusTriaged,
	StatusInProgress, StatusFixCommitted, StatusFixReleased,
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s >= StatusNew && s <= StatusFixReleased
}

// ParseStatus converts a tracker status string into a Status.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ProposalStatus is the queue status of a merge proposal. The zero value
// means no proposal status is known.
type ProposalStatus int

const (
	ProposalNone ProposalStatus = iota
	ProposalWorkInProgress
	ProposalNeedsReview
	ProposalApproved
	ProposalRejected
	ProposalMerged
	ProposalMergeFailed
	ProposalQueued
	ProposalSuperseded
)

var proposalStatusNames = [...]string{
	ProposalNone:           "",
	ProposalWorkInProgress: "Work in progress",
	ProposalNeedsReview:    "Needs review",
	ProposalApproved:       "Approved",
	ProposalRejected:       "Rejected",
	ProposalMerged:         "Merged",
	ProposalMergeFailed:    "Code failed to merge",
	ProposalQueued:         "Queued",
	ProposalSuperseded:     "Superseded",
}

func (s ProposalStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ProposalStatus(%d)", int(s))
	}
	return proposalStatusNames[s]
}

// Valid reports whether s is one of the declared proposal statuses.
func (s ProposalStatus) Valid() bool {
	return s >= ProposalNone && s <= ProposalSuperseded
}

// ParseProposalStatus converts a merge proposal queue status string. An
// empty string parses as ProposalNone.
func ParseProposalStatus(s string) (ProposalStatus, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Failed to merge") {
		return ProposalMergeFailed, nil
	}
	for i, name := range proposalStatusNames {
		if strings.EqualFold(name, s) {
			return ProposalStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProposalStatus, s)
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProposalStatus, int(s))
	}
	return []byte(s.String()), nil
}

func (s *ProposalStatus) UnmarshalText(text []byte) error {
	v, err := ParseProposalStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

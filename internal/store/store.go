package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/kanban/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a kind and key.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot kinds.
const (
	KindMilestone = "milestone"
	KindPerson    = "person"
)

// Snapshot is the set of work items fetched from the tracker for one board
// at one point in time.
type Snapshot struct {
	ID        string
	Kind      string
	Key       string
	FetchedAt time.Time
	Items     []*models.WorkItem
}

// SnapshotInfo describes a snapshot without its items.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	ItemCount int       `json:"item_count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store defines the persistence interface for fetched work items.
type Store interface {
	SaveSnapshot(ctx context.Context, kind, key string, items []*models.WorkItem) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, kind, key string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, kind string, limit int) ([]SnapshotInfo, error)
	// PruneSnapshots keeps the newest keep snapshots for kind and key and
	// deletes the rest.
	PruneSnapshots(ctx context.Context, kind, key string, keep int) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// MilestoneKey is the snapshot key of a milestone board.
func MilestoneKey(project, milestone string) string {
	return project + "/" + milestone
}
